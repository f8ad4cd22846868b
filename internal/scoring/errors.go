package scoring

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for scoring operations.
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrValidation          = errors.New("validation failed")
	ErrMalformedBody       = errors.New("malformed request body")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// MapHTTPStatus maps scoring domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrApplicationNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrMalformedBody) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
