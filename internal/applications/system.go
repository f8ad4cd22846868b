package applications

import (
	"context"

	"github.com/google/uuid"
)

// System defines the contract for application lifecycle operations.
// Operations on an existing application take an optional tenant scope; when set,
// an id that exists under another tenant reports ErrNotFound.
type System interface {
	Handler() *Handler

	Create(ctx context.Context, cmd CreateCommand) (*Application, error)
	Find(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*Application, error)
	// Detail returns the application with its latest score, latest queue entry,
	// decision history, and similar cases.
	Detail(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	// Update applies field edits and an optional public status change.
	Update(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID, cmd UpdateCommand) (*Application, error)
	// Cancel moves a pending application to cancelled. Cancelling a cancelled
	// application succeeds without change.
	Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) error
	// Transition applies a status change on behalf of actor. Entering review
	// creates a queue entry in the same transaction.
	Transition(ctx context.Context, id uuid.UUID, actor Actor, cmd TransitionCommand) (*Application, error)
}
