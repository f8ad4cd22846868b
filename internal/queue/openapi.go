package queue

import (
	"net/http"

	"github.com/JaimeStill/underwrite/pkg/openapi"
)

var tenantParam = openapi.QueryParam("tenant_id", "string", "Owning tenant", true)

var docs = struct {
	List, Summary *openapi.Operation
}{
	List: &openapi.Operation{
		Summary: "List active queue entries",
		Tags:    []string{"Queue"},
		Parameters: []*openapi.Parameter{
			tenantParam,
			openapi.QueryParam("status", "string", "pending, assigned, or in_progress", false),
			openapi.QueryParam("analyst_id", "string", "Assigned analyst", false),
			openapi.QueryParam("priority_max", "integer", "Upper bound on priority (1 is most urgent)", false),
			openapi.QueryParam("sort_by", "string", "priority, created_at, or sla_deadline", false),
			openapi.QueryParam("sort_order", "string", "asc or desc", false),
			openapi.QueryParam("limit", "integer", "Maximum entries returned", false),
			openapi.QueryParam("offset", "integer", "Entries skipped", false),
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK:                  openapi.ResponseJSON("Queue page", "QueuePage"),
			http.StatusUnprocessableEntity: openapi.ResponseRef("Unprocessable"),
		},
	},
	Summary: &openapi.Operation{
		Summary:    "Summarize the active queue and its SLA exposure",
		Tags:       []string{"Queue"},
		Parameters: []*openapi.Parameter{tenantParam},
		Responses: map[int]*openapi.Response{
			http.StatusOK:                  openapi.ResponseJSON("Queue summary", "QueueSummary"),
			http.StatusUnprocessableEntity: openapi.ResponseRef("Unprocessable"),
		},
	},
}

// Schemas returns the component schemas referenced by queue routes.
func Schemas() map[string]*openapi.Schema {
	integer := &openapi.Schema{Type: "integer"}
	timestamp := &openapi.Schema{Type: "string", Format: "date-time"}

	return map[string]*openapi.Schema{
		"QueueEntry": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":               {Type: "string", Format: "uuid"},
				"application_id":   {Type: "string", Format: "uuid"},
				"analyst_id":       {Type: "string", Format: "uuid"},
				"priority":         integer,
				"priority_reason":  {Type: "string"},
				"status":           {Type: "string", Enum: []any{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted}},
				"assigned_at":      timestamp,
				"started_at":       timestamp,
				"completed_at":     timestamp,
				"sla_deadline":     timestamp,
				"sla_breached":     {Type: "boolean"},
				"routing_reason":   {Type: "string"},
				"score_at_routing": integer,
				"created_at":       timestamp,
				"updated_at":       timestamp,
			},
		},
		"QueuePage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"items":  {Type: "array", Items: openapi.SchemaRef("QueueEntry")},
				"total":  integer,
				"limit":  integer,
				"offset": integer,
			},
		},
		"QueueSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"total":           integer,
				"pending":         integer,
				"assigned":        integer,
				"in_progress":     integer,
				"approaching_sla": integer,
				"breached_sla":    integer,
				"by_priority": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"high":   integer,
						"medium": integer,
						"low":    integer,
					},
				},
				"generated_at": timestamp,
			},
		},
	}
}
