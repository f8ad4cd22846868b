package queue

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/lifecycle"
)

// System defines the contract for analyst queue operations.
type System interface {
	Handler() *Handler

	// Start registers the SLA breach sweeper with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error

	Create(ctx context.Context, cmd CreateCommand) (*Entry, error)
	// CreateTx creates an entry inside a transaction owned by the caller.
	CreateTx(ctx context.Context, tx *sql.Tx, cmd CreateCommand) (*Entry, error)

	List(ctx context.Context, tenantID uuid.UUID, params ListParams) (*ListResult, error)
	Summary(ctx context.Context, tenantID uuid.UUID, now time.Time) (*Summary, error)
	// Latest returns the most recently created entry for an application, or nil.
	Latest(ctx context.Context, applicationID uuid.UUID) (*Entry, error)

	// SweepBreaches flags active entries past their deadline and returns how many changed.
	SweepBreaches(ctx context.Context, now time.Time) (int, error)
}
