package applications

import (
	"maps"
	"net/http"

	"github.com/JaimeStill/underwrite/pkg/openapi"
)

var tenantParam = openapi.QueryParam("tenant_id", "string", "Owning tenant", true)

var scopeParam = openapi.QueryParam("tenant_id", "string", "Restricts the lookup to this tenant", false)

var idParam = openapi.PathParam("id", "Application ID")

func withErrors(responses map[int]*openapi.Response, codes ...int) map[int]*openapi.Response {
	for code, resp := range openapi.ErrorResponses(codes...) {
		responses[code] = resp
	}
	return responses
}

var docs = struct {
	Create, List, Detail, Update, Cancel *openapi.Operation
}{
	Create: &openapi.Operation{
		Summary:     "Submit an application",
		Description: "Validates the payload, computes derived metrics, and stores the application as pending.",
		Tags:        []string{"Applications"},
		RequestBody: openapi.RequestBodyJSON("CreateApplication", true),
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusCreated: openapi.ResponseJSON("Application submitted", "Application"),
		}, http.StatusBadRequest, http.StatusConflict, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity),
	},
	List: &openapi.Operation{
		Summary:     "List applications",
		Description: "Offset pagination by page and page_size, or keyset pagination by cursor.",
		Tags:        []string{"Applications"},
		Parameters: []*openapi.Parameter{
			tenantParam,
			openapi.QueryParam("status", "string", "Status filter", false),
			openapi.QueryParam("from_date", "string", "Inclusive lower bound on created_at", false),
			openapi.QueryParam("to_date", "string", "Inclusive upper bound on created_at", false),
			openapi.QueryParam("search", "string", "Matches external id or applicant name", false),
			openapi.QueryParam("sort_by", "string", "created_at, submitted_at, amount, or score", false),
			openapi.QueryParam("sort_order", "string", "asc or desc", false),
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("cursor", "string", "Opaque keyset cursor from a previous page", false),
		},
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Application page", "ApplicationPage"),
		}, http.StatusUnprocessableEntity),
	},
	Detail: &openapi.Operation{
		Summary:    "Get an application with its scoring, queue, decision, and similarity context",
		Tags:       []string{"Applications"},
		Parameters: []*openapi.Parameter{idParam, scopeParam},
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Application detail", "ApplicationDetail"),
		}, http.StatusNotFound, http.StatusUnprocessableEntity),
	},
	Update: &openapi.Operation{
		Summary:     "Update an application",
		Description: "Field edits require a pending application; a status change follows the public transition rules. Derived metrics are recomputed when inputs change.",
		Tags:        []string{"Applications"},
		Parameters:  []*openapi.Parameter{idParam, scopeParam},
		RequestBody: openapi.RequestBodyJSON("UpdateApplication", true),
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Updated application", "Application"),
		}, http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity),
	},
	Cancel: &openapi.Operation{
		Summary:    "Cancel a pending application",
		Tags:       []string{"Applications"},
		Parameters: []*openapi.Parameter{idParam, scopeParam},
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusNoContent: {Description: "Application cancelled"},
		}, http.StatusNotFound, http.StatusConflict),
	},
}

func object(required []string, props map[string]*openapi.Schema) *openapi.Schema {
	return &openapi.Schema{Type: "object", Properties: props, Required: required}
}

func payload(description string) *openapi.Schema {
	return &openapi.Schema{Type: "object", Description: description}
}

// Schemas returns the component schemas referenced by application routes.
func Schemas() map[string]*openapi.Schema {
	enum := make([]any, 0, len(statuses))
	for _, s := range statuses {
		enum = append(enum, string(s))
	}

	application := map[string]*openapi.Schema{
		"id":                 {Type: "string", Format: "uuid"},
		"tenant_id":          {Type: "string", Format: "uuid"},
		"external_id":        {Type: "string"},
		"status":             {Type: "string", Enum: enum},
		"applicant_data":     payload("Applicant details"),
		"financial_data":     payload("Income and obligations"),
		"loan_request":       payload("Requested amount and payment"),
		"credit_bureau_data": payload("Bureau report"),
		"source":             {Type: "string"},
		"metadata":           payload("Derived metrics and intake context"),
		"version":            {Type: "integer"},
		"submitted_at":       {Type: "string", Format: "date-time"},
		"expires_at":         {Type: "string", Format: "date-time"},
		"created_at":         {Type: "string", Format: "date-time"},
		"updated_at":         {Type: "string", Format: "date-time"},
		"score":              {Type: "integer", Description: "Latest credit score, if any"},
	}

	detail := maps.Clone(application)
	detail["scoring_result"] = payload("Latest scoring result")
	detail["queue_info"] = payload("Current queue entry")
	detail["decision_history"] = &openapi.Schema{Type: "array", Items: payload("Decision")}
	detail["similar_cases"] = &openapi.Schema{Type: "array", Items: payload("Similar case")}

	return map[string]*openapi.Schema{
		"Application":       object(nil, application),
		"ApplicationDetail": object(nil, detail),
		"ApplicationPage": object(nil, map[string]*openapi.Schema{
			"items":       {Type: "array", Items: openapi.SchemaRef("Application")},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
			"next_cursor": {Type: "string"},
		}),
		"CreateApplication": object(
			[]string{"tenant_id", "applicant_data", "financial_data", "loan_request"},
			map[string]*openapi.Schema{
				"tenant_id":          {Type: "string", Format: "uuid"},
				"external_id":        {Type: "string"},
				"applicant_data":     payload("Applicant details"),
				"financial_data":     payload("Income and obligations"),
				"loan_request":       payload("Requested amount and payment"),
				"credit_bureau_data": payload("Bureau report"),
				"source":             {Type: "string"},
			},
		),
		"UpdateApplication": object(nil, map[string]*openapi.Schema{
			"external_id":        {Type: "string"},
			"applicant_data":     payload("Applicant details"),
			"financial_data":     payload("Income and obligations"),
			"loan_request":       payload("Requested amount and payment"),
			"credit_bureau_data": payload("Bureau report"),
			"source":             {Type: "string"},
			"status":             {Type: "string", Enum: enum},
		}),
	}
}
