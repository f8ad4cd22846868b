package audit

import (
	"net/http"

	"github.com/JaimeStill/underwrite/pkg/openapi"
)

var listDoc = &openapi.Operation{
	Summary: "List an application's audit history, oldest first",
	Tags:    []string{"Audit"},
	Parameters: []*openapi.Parameter{
		openapi.PathParam("id", "Application ID"),
		openapi.QueryParam("tenant_id", "string", "Owning tenant", true),
	},
	Responses: map[int]*openapi.Response{
		http.StatusOK: {
			Description: "Audit entries",
			Content: map[string]*openapi.MediaType{
				"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("AuditEntry")}},
			},
		},
		http.StatusNotFound:            openapi.ResponseRef("NotFound"),
		http.StatusUnprocessableEntity: openapi.ResponseRef("Unprocessable"),
	},
}

// Schemas returns the component schemas referenced by audit routes.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"AuditEntry": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             {Type: "string", Format: "uuid"},
				"tenant_id":      {Type: "string", Format: "uuid"},
				"entity_type":    {Type: "string"},
				"entity_id":      {Type: "string", Format: "uuid"},
				"action":         {Type: "string", Enum: []any{ActionCreate, ActionUpdate, ActionCancel, ActionTransition}},
				"actor":          {Type: "string"},
				"old_value":      {Type: "object"},
				"new_value":      {Type: "object"},
				"change_summary": {Type: "string"},
				"request_id":     {Type: "string"},
				"created_at":     {Type: "string", Format: "date-time"},
			},
		},
	}
}
