package queue

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for queue operations.
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTenant       = errors.New("invalid tenant_id")
	ErrMalformedBody       = errors.New("malformed request body")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// MapHTTPStatus maps queue domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrApplicationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTenant):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
