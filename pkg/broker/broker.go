// Package broker publishes background tasks to a Redis list consumed by worker processes.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/underwrite/pkg/lifecycle"
)

// ErrDisabled is returned by Publish when task dispatch is turned off.
var ErrDisabled = errors.New("task dispatch disabled")

// Task is the message pushed onto the queue.
type Task struct {
	ID         string    `json:"id"`
	Name       string    `json:"task"`
	Args       []any     `json:"args"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// System publishes tasks and participates in lifecycle coordination.
type System interface {
	// Start registers a startup ping, a readiness check, and a shutdown close
	// with the coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Ping verifies the Redis connection. A disabled broker always succeeds.
	Ping(ctx context.Context) error
	// Publish enqueues a named task and returns its id.
	Publish(ctx context.Context, name string, args ...any) (string, error)
}

type redisBroker struct {
	client *redis.Client
	queue  string
	logger *slog.Logger
}

type disabled struct {
	logger *slog.Logger
}

// New creates a broker from the given configuration. A disabled config yields a
// broker whose Publish returns ErrDisabled without touching the network.
func New(cfg *Config, logger *slog.Logger) System {
	logger = logger.With("system", "broker")

	if !cfg.Enabled {
		return &disabled{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeoutDuration(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     cfg.PoolSize,
	})

	return &redisBroker{
		client: client,
		queue:  cfg.Queue,
		logger: logger,
	}
}

func (b *redisBroker) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting task broker", "queue", b.queue)

	lc.OnReady("broker", b.Ping)

	lc.OnStartup(func() {
		if err := b.Ping(lc.Context()); err != nil {
			b.logger.Error("broker ping failed", "error", err)
			return
		}
		b.logger.Info("broker connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := b.client.Close(); err != nil {
			b.logger.Error("broker close failed", "error", err)
			return
		}
		b.logger.Info("broker connection closed")
	})

	return nil
}

func (b *redisBroker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping %s: %w", b.client.Options().Addr, err)
	}
	return nil
}

func (b *redisBroker) Publish(ctx context.Context, name string, args ...any) (string, error) {
	task := Task{
		ID:         uuid.NewString(),
		Name:       name,
		Args:       args,
		EnqueuedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task %s: %w", name, err)
	}

	if err := b.client.LPush(ctx, b.queue, payload).Err(); err != nil {
		return "", fmt.Errorf("publish task %s: %w", name, err)
	}

	b.logger.Debug("task published", "task", name, "id", task.ID)
	return task.ID, nil
}

func (d *disabled) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("task dispatch disabled")
	return nil
}

func (d *disabled) Ping(ctx context.Context) error {
	return nil
}

func (d *disabled) Publish(ctx context.Context, name string, args ...any) (string, error) {
	return "", ErrDisabled
}
