package applications

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/pkg/pagination"
)

// Domain errors for application operations.
var (
	ErrNotFound         = errors.New("application not found")
	ErrDuplicate        = errors.New("application with this external_id already exists")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidTenant    = errors.New("tenant_id must be a valid UUID")
	ErrInvalidDateRange = errors.New("from_date must not be after to_date")
	ErrInvalidSort      = errors.New("invalid sort parameters")
	ErrNotCancellable   = errors.New("only pending applications can be cancelled")
	ErrConflict         = errors.New("application was modified concurrently")
	ErrMalformedBody    = errors.New("malformed request body")
)

// MapHTTPStatus maps application domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, queue.ErrApplicationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotEditable),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidTenant),
		errors.Is(err, ErrInvalidDateRange),
		errors.Is(err, ErrInvalidSort),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidCursor),
		errors.Is(err, pagination.ErrUnsupportedCursorSort):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
