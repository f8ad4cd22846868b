package scoring

import (
	"context"

	"github.com/google/uuid"
)

// System defines the contract for scoring result operations.
type System interface {
	Handler() *Handler

	// Latest returns the most recent result for an application, or nil when unscored.
	Latest(ctx context.Context, applicationID uuid.UUID) (*Result, error)
	Record(ctx context.Context, cmd RecordCommand) (*Result, error)
}
