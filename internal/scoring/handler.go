package scoring

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/handlers"
	"github.com/JaimeStill/underwrite/pkg/routes"
)

// Handler provides HTTP endpoints for recording scoring results.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "scoring"),
	}
}

// InternalRoutes returns the route group served to internal actors.
func (h *Handler) InternalRoutes() routes.Group {
	return routes.Group{
		Prefix: "/applications",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/scores", Handler: h.Record},
		},
	}
}

// Record stores a scoring result for the application in the path.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrApplicationNotFound)
		return
	}

	var cmd RecordCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMalformedBody)
		return
	}
	cmd.ApplicationID = id

	result, err := h.sys.Record(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}
