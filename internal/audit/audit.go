// Package audit records lifecycle changes to domain entities. Rows are written in
// the same transaction as the change they describe; a JSON snapshot of each row is
// archived to blob storage after commit.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actions recorded against applications.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionCancel     = "cancel"
	ActionTransition = "transition"
)

// Entry is one persisted audit row.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	EntityType    string          `json:"entity_type"`
	EntityID      uuid.UUID       `json:"entity_id"`
	Action        string          `json:"action"`
	Actor         string          `json:"actor"`
	OldValue      json.RawMessage `json:"old_value"`
	NewValue      json.RawMessage `json:"new_value"`
	ChangeSummary *string         `json:"change_summary"`
	RequestID     *string         `json:"request_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordCommand describes a change to audit. OldValue and NewValue are marshaled
// to JSON; nil values are stored as NULL.
type RecordCommand struct {
	TenantID      uuid.UUID
	EntityType    string
	EntityID      uuid.UUID
	Action        string
	Actor         string
	OldValue      any
	NewValue      any
	ChangeSummary string
}

// System defines the contract for audit operations.
type System interface {
	Handler() *Handler

	// Record inserts an audit row inside the caller's transaction.
	Record(ctx context.Context, tx *sql.Tx, cmd RecordCommand) (*Entry, error)
	// Archive uploads a snapshot of entry to blob storage. Failures are logged, not returned.
	Archive(ctx context.Context, entry *Entry)
	List(ctx context.Context, tenantID, entityID uuid.UUID) ([]Entry, error)
}

// SnapshotKey returns the blob key an entry is archived under.
func SnapshotKey(entry *Entry) string {
	return "audit/" + entry.EntityID.String() + "/" + entry.ID.String() + ".json"
}
