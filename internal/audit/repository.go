package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/middleware"
	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
	"github.com/JaimeStill/underwrite/pkg/storage"
)

var projection = query.
	NewProjectionMap("public", "audit_logs", "al").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("entity_type", "EntityType").
	Project("entity_id", "EntityID").
	Project("action", "Action").
	Project("actor", "Actor").
	Project("old_value", "OldValue").
	Project("new_value", "NewValue").
	Project("change_summary", "ChangeSummary").
	Project("request_id", "RequestID").
	Project("created_at", "CreatedAt")

var historySort = []query.SortField{
	{Field: "CreatedAt"},
	{Field: "ID"},
}

type repo struct {
	db      *sql.DB
	storage storage.System
	logger  *slog.Logger
}

// New creates an audit repository implementing the System interface.
func New(db *sql.DB, store storage.System, logger *slog.Logger) System {
	return &repo{
		db:      db,
		storage: store,
		logger:  logger.With("system", "audit"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Record(ctx context.Context, tx *sql.Tx, cmd RecordCommand) (*Entry, error) {
	oldValue, err := marshalValue(cmd.OldValue)
	if err != nil {
		return nil, fmt.Errorf("marshal old value: %w", err)
	}
	newValue, err := marshalValue(cmd.NewValue)
	if err != nil {
		return nil, fmt.Errorf("marshal new value: %w", err)
	}

	var requestID *string
	if id := middleware.RequestIDFrom(ctx); id != "" {
		requestID = &id
	}

	var summary *string
	if cmd.ChangeSummary != "" {
		summary = &cmd.ChangeSummary
	}

	q := `
		INSERT INTO audit_logs AS al (id, tenant_id, entity_type, entity_id, action, actor,
			old_value, new_value, change_summary, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + projection.Columns()

	args := []any{
		uuid.New(),
		cmd.TenantID,
		cmd.EntityType,
		cmd.EntityID,
		cmd.Action,
		cmd.Actor,
		oldValue,
		newValue,
		summary,
		requestID,
	}

	entry, err := repository.QueryOne(ctx, tx, q, args, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return &entry, nil
}

func (r *repo) Archive(ctx context.Context, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("audit snapshot marshal failed", "id", entry.ID, "error", err)
		return
	}

	key := SnapshotKey(entry)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			r.logger.Debug("audit snapshot skipped, storage disabled", "key", key)
			return
		}
		r.logger.Warn("audit snapshot upload failed", "key", key, "error", err)
		return
	}

	r.logger.Debug("audit snapshot archived", "key", key)
}

func (r *repo) List(ctx context.Context, tenantID, entityID uuid.UUID) ([]Entry, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("EntityID", entityID).
		OrderByFields(historySort).
		Build()

	entries, err := repository.QueryMany(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	return entries, nil
}

func marshalValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.ID,
		&e.TenantID,
		&e.EntityType,
		&e.EntityID,
		&e.Action,
		&e.Actor,
		(*[]byte)(&e.OldValue),
		(*[]byte)(&e.NewValue),
		&e.ChangeSummary,
		&e.RequestID,
		&e.CreatedAt,
	)
	return e, err
}
