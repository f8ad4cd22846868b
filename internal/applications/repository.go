package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/underwrite/internal/audit"
	"github.com/JaimeStill/underwrite/internal/decisions"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/internal/scoring"
	"github.com/JaimeStill/underwrite/internal/similar"
	"github.com/JaimeStill/underwrite/pkg/broker"
	"github.com/JaimeStill/underwrite/pkg/metrics"
	"github.com/JaimeStill/underwrite/pkg/pagination"
	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

// TaskScoreApplication is dispatched after an application is created.
const TaskScoreApplication = "score_application"

const entityType = "application"

// Option configures an application repository.
type Option func(*repo)

// WithClock replaces the wall clock used for submission and expiry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *repo) {
		r.now = now
	}
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	metrics    *metrics.Metrics
	broker     broker.System
	audit      audit.System
	queue      queue.System
	scoring    scoring.System
	decisions  decisions.System
	similar    similar.System
	now        func() time.Time
}

// New creates an application repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	m *metrics.Metrics,
	dispatch broker.System,
	auditSys audit.System,
	queueSys queue.System,
	scoringSys scoring.System,
	decisionsSys decisions.System,
	similarSys similar.System,
	opts ...Option,
) System {
	r := &repo{
		db:         db,
		logger:     logger.With("system", "applications"),
		pagination: pagination,
		metrics:    m,
		broker:     dispatch,
		audit:      auditSys,
		queue:      queueSys,
		scoring:    scoringSys,
		decisions:  decisionsSys,
		similar:    similarSys,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Application, error) {
	if cmd.TenantID == uuid.Nil {
		return nil, ErrInvalidTenant
	}
	if err := ValidateIntake(cmd.ApplicantData, cmd.FinancialData, cmd.LoanRequest, cmd.CreditBureauData); err != nil {
		return nil, err
	}

	externalID := newExternalID()
	if cmd.ExternalID != nil && strings.TrimSpace(*cmd.ExternalID) != "" {
		externalID = strings.TrimSpace(*cmd.ExternalID)
	}

	source := DefaultSource
	if cmd.Source != nil && *cmd.Source != "" {
		source = *cmd.Source
	}

	metadata, err := json.Marshal(Metadata{Derived: Derive(cmd.FinancialData, cmd.LoanRequest)})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	now := r.now().UTC()
	expires := now.Add(ExpiryWindow)

	q := `
		INSERT INTO applications AS a (id, tenant_id, external_id, status, applicant_data, financial_data,
			loan_request, credit_bureau_data, source, metadata, submitted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + projection.Columns()

	args := []any{
		uuid.New(),
		cmd.TenantID,
		externalID,
		string(StatusPending),
		string(cmd.ApplicantData),
		string(cmd.FinancialData),
		string(cmd.LoanRequest),
		jsonArg(cmd.CreditBureauData),
		source,
		string(metadata),
		now,
		expires,
	}

	var entry *audit.Entry
	app, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Application, error) {
		app, err := repository.QueryOne(ctx, tx, q, args, scanApplication)
		if err != nil {
			return app, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		entry, err = r.audit.Record(ctx, tx, audit.RecordCommand{
			TenantID:      app.TenantID,
			EntityType:    entityType,
			EntityID:      app.ID,
			Action:        audit.ActionCreate,
			Actor:         string(ActorPublic),
			NewValue:      app,
			ChangeSummary: "application submitted",
		})
		return app, err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create application: %w", err)
	}

	r.audit.Archive(ctx, entry)
	r.dispatch(ctx, TaskScoreApplication, app.ID.String())
	r.metrics.ApplicationCreated(app.Source)

	r.logger.Info(
		"application created",
		"id", app.ID,
		"tenant_id", app.TenantID,
		"external_id", app.ExternalID,
	)
	return &app, nil
}

func (r *repo) Find(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*Application, error) {
	app, err := r.load(ctx, r.db, id, tenantID)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *repo) Detail(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*Detail, error) {
	app, err := r.Find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Application: *app}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := r.scoring.Latest(gctx, id)
		detail.ScoringResult = result
		return err
	})

	g.Go(func() error {
		entry, err := r.queue.Latest(gctx, id)
		detail.QueueInfo = entry
		return err
	})

	g.Go(func() error {
		history, err := r.decisions.ListByApplication(gctx, id)
		detail.DecisionHistory = history
		return err
	})

	g.Go(func() error {
		cases, err := r.similar.ListByApplication(gctx, id)
		detail.SimilarCases = cases
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load application detail: %w", err)
	}

	if detail.DecisionHistory == nil {
		detail.DecisionHistory = []decisions.Decision{}
	}
	if detail.SimilarCases == nil {
		detail.SimilarCases = []similar.Case{}
	}

	return detail, nil
}

func (r *repo) Update(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID, cmd UpdateCommand) (*Application, error) {
	var (
		entry   *audit.Entry
		from    Status
		changed bool
	)

	app, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Application, error) {
		current, err := r.load(ctx, tx, id, tenantID)
		if err != nil {
			return nil, err
		}
		from = current.Status

		next, fields, err := applyEdits(*current, cmd)
		if err != nil {
			return nil, err
		}

		if cmd.Status != nil {
			if err := ValidateTransition(current.Status, *cmd.Status, ActorPublic); err != nil {
				return nil, err
			}
			next.Status = *cmd.Status
		}

		if len(fields) == 0 && next.Status == current.Status {
			return current, nil
		}
		changed = true

		updated, err := r.write(ctx, tx, current.Version, next)
		if err != nil {
			return nil, err
		}

		entry, err = r.audit.Record(ctx, tx, audit.RecordCommand{
			TenantID:      updated.TenantID,
			EntityType:    entityType,
			EntityID:      updated.ID,
			Action:        audit.ActionUpdate,
			Actor:         string(ActorPublic),
			OldValue:      current,
			NewValue:      updated,
			ChangeSummary: summarize(fields, current.Status, updated.Status),
		})
		return updated, err
	})
	if err != nil {
		return nil, wrapDomain("update application", err)
	}

	if changed {
		r.audit.Archive(ctx, entry)
		if app.Status != from {
			r.metrics.Transition(string(from), string(app.Status))
		}
		r.logger.Info("application updated", "id", app.ID, "version", app.Version, "status", app.Status)
	}

	return app, nil
}

func (r *repo) Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) error {
	var entry *audit.Entry

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		current, err := r.load(ctx, tx, id, tenantID)
		if err != nil {
			return struct{}{}, err
		}

		if current.Status == StatusCancelled {
			return struct{}{}, nil
		}
		if err := ValidateTransition(current.Status, StatusCancelled, ActorPublic); err != nil {
			return struct{}{}, fmt.Errorf("%w: status is %s", ErrNotCancellable, current.Status)
		}

		err = repository.ExecExpectOne(ctx, tx,
			"UPDATE applications SET status = $1, version = version + 1 WHERE id = $2 AND version = $3",
			string(StatusCancelled), current.ID, current.Version,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return struct{}{}, ErrConflict
			}
			return struct{}{}, err
		}

		entry, err = r.audit.Record(ctx, tx, audit.RecordCommand{
			TenantID:      current.TenantID,
			EntityType:    entityType,
			EntityID:      current.ID,
			Action:        audit.ActionCancel,
			Actor:         string(ActorPublic),
			OldValue:      map[string]any{"status": current.Status, "version": current.Version},
			NewValue:      map[string]any{"status": StatusCancelled, "version": current.Version + 1},
			ChangeSummary: summarize(nil, current.Status, StatusCancelled),
		})
		return struct{}{}, err
	})
	if err != nil {
		return wrapDomain("cancel application", err)
	}

	if entry != nil {
		r.audit.Archive(ctx, entry)
		r.metrics.Transition(string(StatusPending), string(StatusCancelled))
		r.logger.Info("application cancelled", "id", id)
	}
	return nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, actor Actor, cmd TransitionCommand) (*Application, error) {
	var (
		entry *audit.Entry
		from  Status
	)

	app, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Application, error) {
		current, err := r.load(ctx, tx, id, nil)
		if err != nil {
			return nil, err
		}
		from = current.Status

		if err := ValidateTransition(current.Status, cmd.Status, actor); err != nil {
			return nil, err
		}
		if current.Status == cmd.Status {
			return current, nil
		}

		next := *current
		next.Status = cmd.Status

		updated, err := r.write(ctx, tx, current.Version, next)
		if err != nil {
			return nil, err
		}

		if cmd.Status == StatusReview {
			_, err := r.queue.CreateTx(ctx, tx, queue.CreateCommand{
				ApplicationID:  updated.ID,
				ScoreAtRouting: cmd.ScoreAtRouting,
				RoutingReason:  cmd.RoutingReason,
				IsVIP:          cmd.IsVIP,
			})
			if err != nil {
				return nil, err
			}
		}

		entry, err = r.audit.Record(ctx, tx, audit.RecordCommand{
			TenantID:      updated.TenantID,
			EntityType:    entityType,
			EntityID:      updated.ID,
			Action:        audit.ActionTransition,
			Actor:         string(actor),
			OldValue:      map[string]any{"status": current.Status, "version": current.Version},
			NewValue:      map[string]any{"status": updated.Status, "version": updated.Version},
			ChangeSummary: summarize(nil, current.Status, updated.Status),
		})
		return updated, err
	})
	if err != nil {
		return nil, wrapDomain("transition application", err)
	}

	if entry != nil {
		r.audit.Archive(ctx, entry)
		r.metrics.Transition(string(from), string(app.Status))
		r.logger.Info("application transitioned", "id", app.ID, "from", from, "to", app.Status, "actor", actor)
	}
	return app, nil
}

// load reads an application with its latest score. A nil tenant skips the tenant scope.
func (r *repo) load(ctx context.Context, q repository.Querier, id uuid.UUID, tenantID *uuid.UUID) (*Application, error) {
	b := query.NewBuilder(scoredProjection).WhereEquals("ID", id)
	if tenantID != nil {
		b.WhereEquals("TenantID", *tenantID)
	}
	sqlStr, args := b.BuildSingleOrNull()

	app, err := repository.QueryOptional(ctx, q, sqlStr, args, scanScoredApplication)
	if err != nil {
		return nil, fmt.Errorf("query application: %w", err)
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

// write persists next over the row at expectedVersion and bumps the version.
// A concurrent change since the read reports ErrConflict.
func (r *repo) write(ctx context.Context, tx *sql.Tx, expectedVersion int, next Application) (*Application, error) {
	metadata, err := json.Marshal(next.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	q := `
		UPDATE applications AS a
		SET external_id = $3, status = $4, applicant_data = $5, financial_data = $6, loan_request = $7,
			credit_bureau_data = $8, source = $9, metadata = a.metadata || $10::jsonb, version = a.version + 1
		WHERE a.id = $1 AND a.version = $2
		RETURNING ` + projection.Columns()

	args := []any{
		next.ID,
		expectedVersion,
		next.ExternalID,
		string(next.Status),
		string(next.ApplicantData),
		string(next.FinancialData),
		string(next.LoanRequest),
		jsonArg(next.CreditBureauData),
		next.Source,
		string(metadata),
	}

	updated, err := repository.QueryOne(ctx, tx, q, args, scanApplication)
	if err != nil {
		return nil, repository.MapError(err, ErrConflict, ErrDuplicate)
	}
	updated.Score = next.Score
	return &updated, nil
}

// applyEdits merges the field edits of cmd into app and returns the names of the
// fields that changed. Data edits are re-validated against the intake schema and
// refresh the derived metrics.
func applyEdits(app Application, cmd UpdateCommand) (Application, []string, error) {
	if !cmd.EditsFields() {
		return app, nil, nil
	}
	if err := CanEdit(app.Status); err != nil {
		return app, nil, err
	}

	var fields []string

	if cmd.ExternalID != nil {
		id := strings.TrimSpace(*cmd.ExternalID)
		if id == "" {
			return app, nil, fmt.Errorf("%w: external_id must not be empty", ErrValidation)
		}
		app.ExternalID = id
		fields = append(fields, "external_id")
	}
	if cmd.Source != nil {
		if *cmd.Source == "" {
			return app, nil, fmt.Errorf("%w: source must not be empty", ErrValidation)
		}
		app.Source = *cmd.Source
		fields = append(fields, "source")
	}

	dataEdited := false
	if len(cmd.ApplicantData) > 0 {
		app.ApplicantData = cmd.ApplicantData
		fields = append(fields, "applicant_data")
		dataEdited = true
	}
	if len(cmd.FinancialData) > 0 {
		app.FinancialData = cmd.FinancialData
		fields = append(fields, "financial_data")
		dataEdited = true
	}
	if len(cmd.LoanRequest) > 0 {
		app.LoanRequest = cmd.LoanRequest
		fields = append(fields, "loan_request")
		dataEdited = true
	}
	if len(cmd.CreditBureauData) > 0 {
		app.CreditBureauData = nil
		if string(cmd.CreditBureauData) != "null" {
			app.CreditBureauData = cmd.CreditBureauData
		}
		fields = append(fields, "credit_bureau_data")
		dataEdited = true
	}

	if dataEdited {
		if err := ValidateIntake(app.ApplicantData, app.FinancialData, app.LoanRequest, app.CreditBureauData); err != nil {
			return app, nil, err
		}
		app.Metadata.Derived = Derive(app.FinancialData, app.LoanRequest)
	}

	return app, fields, nil
}

func (r *repo) dispatch(ctx context.Context, task string, args ...any) {
	id, err := r.broker.Publish(ctx, task, args...)
	if err != nil {
		if errors.Is(err, broker.ErrDisabled) {
			r.logger.Debug("task not dispatched, broker disabled", "task", task)
			return
		}
		r.metrics.Dispatch(task, false)
		r.logger.Warn("task dispatch failed", "task", task, "error", err)
		return
	}

	r.metrics.Dispatch(task, true)
	r.logger.Info("task dispatched", "task", task, "task_id", id)
}

func summarize(fields []string, from, to Status) string {
	var parts []string
	if len(fields) > 0 {
		parts = append(parts, "fields: "+strings.Join(fields, ", "))
	}
	if from != to {
		parts = append(parts, fmt.Sprintf("status %s -> %s", from, to))
	}
	return strings.Join(parts, "; ")
}

// wrapDomain keeps domain errors as they are and adds context to the rest.
func wrapDomain(op string, err error) error {
	for _, target := range []error{
		ErrNotFound,
		ErrConflict,
		ErrDuplicate,
		ErrValidation,
		ErrInvalidStatus,
		ErrInvalidTransition,
		ErrNotEditable,
		ErrNotCancellable,
		queue.ErrApplicationNotFound,
	} {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func newExternalID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "APP-" + strings.ToUpper(hex[:2*ExternalIDBytes])
}

func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
