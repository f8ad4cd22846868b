package audit

import (
	"errors"
	"net/http"
)

// Domain errors for audit operations.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidTenant = errors.New("invalid tenant_id")
)

// MapHTTPStatus maps audit domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidTenant) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
