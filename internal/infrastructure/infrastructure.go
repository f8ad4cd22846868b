// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, blob storage, task broker,
// metrics) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/underwrite/internal/config"
	"github.com/JaimeStill/underwrite/pkg/broker"
	"github.com/JaimeStill/underwrite/pkg/database"
	"github.com/JaimeStill/underwrite/pkg/lifecycle"
	"github.com/JaimeStill/underwrite/pkg/metrics"
	"github.com/JaimeStill/underwrite/pkg/storage"
)

// MetricsNamespace prefixes every Prometheus series the service exports.
const MetricsNamespace = "underwrite"

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Broker    broker.System
	Metrics   *metrics.Metrics
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Broker:    broker.New(&cfg.Broker, logger),
		Metrics:   metrics.New(MetricsNamespace),
	}, nil
}

// Start registers database, storage, and broker hooks with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Broker.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("broker start failed: %w", err)
	}
	return nil
}
