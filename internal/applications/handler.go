package applications

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/formatting"
	"github.com/JaimeStill/underwrite/pkg/handlers"
	"github.com/JaimeStill/underwrite/pkg/pagination"
	"github.com/JaimeStill/underwrite/pkg/routes"
)

// Handler provides HTTP endpoints for application operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "applications"),
		pagination: pagination,
	}
}

// Routes returns the public route group for application endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/applications",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create, OpenAPI: docs.Create},
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: docs.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Detail, OpenAPI: docs.Detail},
			{Method: "PATCH", Pattern: "/{id}", Handler: h.Update, OpenAPI: docs.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Cancel, OpenAPI: docs.Cancel},
		},
	}
}

// InternalRoutes returns the route group served to internal actors.
func (h *Handler) InternalRoutes() routes.Group {
	return routes.Group{
		Prefix: "/applications",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/transition", Handler: h.Transition},
		},
	}
}

// Create submits a new application.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	app, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, app)
}

// List returns a page of a tenant's applications in offset or cursor mode.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params, err := ListParamsFromQuery(r.URL.Query(), h.pagination)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.List(r.Context(), params)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Detail returns an application with its scoring, queue, decision, and similarity context.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	detail, err := h.sys.Detail(r.Context(), tenantID, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}

// Update applies a partial edit and an optional status change.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	var cmd UpdateCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	app, err := h.sys.Update(r.Context(), tenantID, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, app)
}

// Cancel cancels a pending application.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.sys.Cancel(r.Context(), tenantID, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Transition applies a status change requested by an internal subsystem.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return
	}

	var cmd TransitionCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	if cmd.Status == "" {
		handlers.RespondError(w, h.logger, http.StatusUnprocessableEntity, fmt.Errorf("%w: status is required", ErrValidation))
		return
	}

	app, err := h.sys.Transition(r.Context(), id, ActorInternal, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, app)
}

// scope parses the application id and the optional tenant_id. A malformed id
// reads as not found; an absent tenant_id leaves the lookup unscoped.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (*uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return nil, uuid.Nil, false
	}

	raw := r.URL.Query().Get("tenant_id")
	if raw == "" {
		return nil, id, true
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnprocessableEntity, ErrInvalidTenant)
		return nil, uuid.Nil, false
	}

	return &tenantID, id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("request body exceeds %s", formatting.FormatBytes(tooLarge.Limit, 0)))
	case errors.Is(err, ErrInvalidStatus):
		handlers.RespondError(w, h.logger, http.StatusUnprocessableEntity, err)
	default:
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMalformedBody)
	}
	return false
}
