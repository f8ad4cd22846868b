package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"

	"github.com/JaimeStill/underwrite/pkg/lifecycle"
	"github.com/JaimeStill/underwrite/pkg/metrics"
	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

const sweepTimeout = 30 * time.Second

// Option configures a queue repository.
type Option func(*repo)

// WithClock replaces the wall clock used for SLA deadlines and sweeps.
func WithClock(now func() time.Time) Option {
	return func(r *repo) {
		r.now = now
	}
}

type repo struct {
	db      *sql.DB
	cfg     *Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a queue repository implementing the System interface.
func New(db *sql.DB, cfg *Config, m *metrics.Metrics, logger *slog.Logger, opts ...Option) System {
	r := &repo{
		db:      db,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With("system", "queue"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.now, r.logger)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	c := cron.New()

	_, err := c.AddFunc(r.cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(lc.Context(), sweepTimeout)
		defer cancel()

		n, err := r.SweepBreaches(ctx, r.now())
		if err != nil {
			r.logger.Error("sla sweep failed", "error", err)
			return
		}
		if n > 0 {
			r.logger.Warn("sla breaches flagged", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sla sweep: %w", err)
	}

	lc.OnStartup(func() {
		c.Start()
		r.logger.Info("sla sweeper started", "schedule", r.cfg.SweepSchedule)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-c.Stop().Done()
		r.logger.Info("sla sweeper stopped")
	})

	return nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Entry, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Entry, error) {
		return r.CreateTx(ctx, tx, cmd)
	})
}

func (r *repo) CreateTx(ctx context.Context, tx *sql.Tx, cmd CreateCommand) (*Entry, error) {
	var loanRequest []byte
	err := tx.QueryRowContext(ctx,
		"SELECT loan_request FROM applications WHERE id = $1",
		cmd.ApplicationID,
	).Scan(&loanRequest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("load application: %w", err)
	}

	loanAmount := gjson.GetBytes(loanRequest, "loan_amount").Float()
	budget := r.cfg.SLABudgetDuration()
	now := r.now().UTC()

	score := 0
	if cmd.ScoreAtRouting != nil {
		score = *cmd.ScoreAtRouting
	}

	priority := ComputePriority(score, loanAmount, cmd.IsVIP, budget.Hours())
	reason := PriorityReason(loanAmount, cmd.IsVIP, budget.Hours())

	q := `
		INSERT INTO analyst_queues AS q (id, application_id, priority, priority_reason, status,
			sla_deadline, sla_breached, routing_reason, score_at_routing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $9, $9)
		RETURNING ` + projection.Columns()

	args := []any{
		uuid.New(),
		cmd.ApplicationID,
		priority,
		reason,
		string(StatusPending),
		now.Add(budget),
		cmd.RoutingReason,
		cmd.ScoreAtRouting,
		now,
	}

	entry, err := repository.QueryOne(ctx, tx, q, args, scanEntry)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("insert queue entry: %w", err)
	}

	r.metrics.QueueEntryCreated()
	r.logger.Info(
		"queue entry created",
		"id", entry.ID,
		"application_id", entry.ApplicationID,
		"priority", entry.Priority,
		"sla_deadline", entry.SLADeadline,
	)
	return &entry, nil
}

func (r *repo) List(ctx context.Context, tenantID uuid.UUID, params ListParams) (*ListResult, error) {
	b := query.NewBuilder(tenantProjection).WhereEquals("TenantID", tenantID)
	params.Apply(b)

	countSQL, countArgs := b.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count queue entries: %w", err)
	}

	pageSQL, pageArgs := b.BuildOffset(params.Limit, params.Offset)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query queue entries: %w", err)
	}

	return &ListResult{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

func (r *repo) Summary(ctx context.Context, tenantID uuid.UUID, now time.Time) (*Summary, error) {
	statuses := make([]any, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		statuses[i] = string(s)
	}

	q, args := query.
		NewBuilder(summaryProjection).
		WhereEquals("TenantID", tenantID).
		WhereIn("Status", statuses).
		Build()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query active queue: %w", err)
	}
	defer rows.Close()

	summary := &Summary{GeneratedAt: now}
	window := r.cfg.ApproachingWindowDuration()

	for rows.Next() {
		var (
			status   Status
			priority int
			deadline time.Time
		)
		if err := rows.Scan(&status, &priority, &deadline); err != nil {
			return nil, fmt.Errorf("scan active queue: %w", err)
		}
		summary.Add(status, priority, deadline, now, window)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active queue: %w", err)
	}

	return summary, nil
}

func (r *repo) Latest(ctx context.Context, applicationID uuid.UUID) (*Entry, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ApplicationID", applicationID).
		OrderByFields(latestSort).
		BuildLimit(1)

	entry, err := repository.QueryOptional(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query latest queue entry: %w", err)
	}
	return entry, nil
}

func (r *repo) SweepBreaches(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE analyst_queues
		SET sla_breached = true
		WHERE sla_breached = false
			AND status IN ('pending', 'assigned', 'in_progress')
			AND sla_deadline <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep sla breaches: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sla breaches: %w", err)
	}

	r.metrics.SLABreaches(int(n))
	return int(n), nil
}
