package queue

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/underwrite/pkg/handlers"
	"github.com/JaimeStill/underwrite/pkg/routes"
)

// Handler provides HTTP endpoints for queue operations.
type Handler struct {
	sys    System
	now    func() time.Time
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system, clock, and logger.
func NewHandler(sys System, now func() time.Time, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		now:    now,
		logger: logger.With("handler", "queue"),
	}
}

// Routes returns the public route group for queue endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/queue",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: docs.List},
			{Method: "GET", Pattern: "/summary", Handler: h.Summary, OpenAPI: docs.Summary},
		},
	}
}

// InternalRoutes returns the route group served to internal actors.
func (h *Handler) InternalRoutes() routes.Group {
	return routes.Group{
		Prefix: "/queue",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
		},
	}
}

// List returns a page of a tenant's queue entries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	tenantID, err := TenantFromQuery(values)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	params, err := ListParamsFromQuery(values)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.List(r.Context(), tenantID, params)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Summary returns the active-queue aggregate for a tenant as of now.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID, err := TenantFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	summary, err := h.sys.Summary(r.Context(), tenantID, h.now().UTC())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, summary)
}

// Create routes an application into the queue.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMalformedBody)
		return
	}

	entry, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, entry)
}
