package queue

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

func entryProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "analyst_queues", "q").
		Project("id", "ID").
		Project("application_id", "ApplicationID").
		Project("analyst_id", "AnalystID").
		Project("priority", "Priority").
		Project("priority_reason", "PriorityReason").
		Project("status", "Status").
		Project("assigned_at", "AssignedAt").
		Project("started_at", "StartedAt").
		Project("completed_at", "CompletedAt").
		Project("sla_deadline", "SLADeadline").
		Project("sla_breached", "SLABreached").
		Project("routing_reason", "RoutingReason").
		Project("score_at_routing", "ScoreAtRouting").
		Project("created_at", "CreatedAt").
		Project("updated_at", "UpdatedAt")
}

var projection = entryProjection()

// tenantProjection scopes entries to a tenant through the owning application.
var tenantProjection = entryProjection().
	Join("public", "applications", "a", "JOIN", "a.id = q.application_id").
	Expr("a.tenant_id", "TenantID")

var summaryProjection = query.
	NewProjectionMap("public", "analyst_queues", "q").
	Project("status", "Status").
	Project("priority", "Priority").
	Project("sla_deadline", "SLADeadline").
	Join("public", "applications", "a", "JOIN", "a.id = q.application_id").
	Expr("a.tenant_id", "TenantID")

var latestSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
	{Field: "ID", Descending: true},
}

var sortFields = map[string]string{
	"priority":     "Priority",
	"created_at":   "CreatedAt",
	"sla_deadline": "SLADeadline",
}

// List parameter bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListParams filters, orders, and pages the queue listing.
type ListParams struct {
	Status      *Status
	AnalystID   *uuid.UUID
	PriorityMax *int
	SortBy      string
	Descending  bool
	Limit       int
	Offset      int
}

// Apply adds filter conditions and ordering to a query builder. The id tie-break
// follows the primary sort direction.
func (p ListParams) Apply(b *query.Builder) *query.Builder {
	if p.Status != nil {
		b.WhereEquals("Status", string(*p.Status))
	}
	if p.AnalystID != nil {
		b.WhereEquals("AnalystID", *p.AnalystID)
	}
	if p.PriorityMax != nil {
		b.WhereBetween("Priority", nil, *p.PriorityMax)
	}
	return b.OrderByFields([]query.SortField{
		{Field: sortFields[p.SortBy], Descending: p.Descending},
		{Field: "ID", Descending: p.Descending},
	})
}

// ListParamsFromQuery parses and validates queue listing parameters.
// Every failure wraps ErrValidation.
func ListParamsFromQuery(values url.Values) (ListParams, error) {
	p := ListParams{
		SortBy: "priority",
		Limit:  DefaultLimit,
	}

	if v := values.Get("status"); v != "" {
		s := Status(v)
		if !s.active() {
			return p, validationError("status must be one of pending, assigned, in_progress")
		}
		p.Status = &s
	}

	if v := values.Get("analyst_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return p, validationError("analyst_id must be a uuid")
		}
		p.AnalystID = &id
	}

	if v := values.Get("priority_max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < MinPriority || n > MaxPriority {
			return p, validationError("priority_max must be between %d and %d", MinPriority, MaxPriority)
		}
		p.PriorityMax = &n
	}

	if v := values.Get("sort_by"); v != "" {
		if _, ok := sortFields[v]; !ok {
			return p, validationError("sort_by must be one of priority, created_at, sla_deadline")
		}
		p.SortBy = v
	}

	switch strings.ToLower(values.Get("sort_order")) {
	case "", "asc":
	case "desc":
		p.Descending = true
	default:
		return p, validationError("sort_order must be asc or desc")
	}

	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return p, validationError("limit must be between 1 and %d", MaxLimit)
		}
		p.Limit = n
	}

	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, validationError("offset must be a non-negative integer")
		}
		p.Offset = n
	}

	return p, nil
}

// TenantFromQuery parses the required tenant_id parameter.
func TenantFromQuery(values url.Values) (uuid.UUID, error) {
	id, err := uuid.Parse(values.Get("tenant_id"))
	if err != nil {
		return uuid.Nil, ErrInvalidTenant
	}
	return id, nil
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.ID,
		&e.ApplicationID,
		&e.AnalystID,
		&e.Priority,
		&e.PriorityReason,
		&e.Status,
		&e.AssignedAt,
		&e.StartedAt,
		&e.CompletedAt,
		&e.SLADeadline,
		&e.SLABreached,
		&e.RoutingReason,
		&e.ScoreAtRouting,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}
