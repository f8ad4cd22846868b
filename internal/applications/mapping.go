package applications

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/pagination"
	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

func baseProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "applications", "a").
		Project("id", "ID").
		Project("tenant_id", "TenantID").
		Project("external_id", "ExternalID").
		Project("status", "Status").
		Project("applicant_data", "ApplicantData").
		Project("financial_data", "FinancialData").
		Project("loan_request", "LoanRequest").
		Project("credit_bureau_data", "CreditBureauData").
		Project("source", "Source").
		Project("metadata", "Metadata").
		Project("version", "Version").
		Project("submitted_at", "SubmittedAt").
		Project("expires_at", "ExpiresAt").
		Project("created_at", "CreatedAt").
		Project("updated_at", "UpdatedAt").
		Expr("(a.loan_request->>'loan_amount')::numeric", "Amount").
		Expr("a.applicant_data->>'name'", "ApplicantName")
}

// projection covers the applications table alone and backs RETURNING clauses.
var projection = baseProjection()

// scoredProjection adds the latest-by-time scoring result. Unscored applications
// keep a NULL score.
var scoredProjection = baseProjection().
	JoinLateral(
		"SELECT sr.score FROM public.scoring_results sr WHERE sr.application_id = a.id ORDER BY sr.created_at DESC, sr.id DESC LIMIT 1",
		"ls",
	).
	Project("score", "Score")

// sortFields maps the public sort_by values to projection fields.
var sortFields = map[string]string{
	"created_at":   "CreatedAt",
	"submitted_at": "SubmittedAt",
	"amount":       "Amount",
	"score":        "Score",
}

// keysetSorts are the sort keys cursors can resume from.
var keysetSorts = map[string]bool{
	"created_at":   true,
	"submitted_at": true,
}

const defaultSortBy = "created_at"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ListParams filters, orders, and pages the application listing.
type ListParams struct {
	TenantID   uuid.UUID
	Status     *Status
	FromDate   *time.Time
	ToDate     *time.Time
	Search     *string
	SortBy     string
	Descending bool
	Page       int
	PageSize   int
	Cursor     *string
}

// Keyset reports whether the listing resumes from a cursor.
func (p ListParams) Keyset() bool {
	return p.Cursor != nil && *p.Cursor != ""
}

// Apply adds the tenant scope and filter conditions to a query builder.
func (p ListParams) Apply(b *query.Builder) *query.Builder {
	b.WhereEquals("TenantID", p.TenantID)
	if p.Status != nil {
		b.WhereEquals("Status", string(*p.Status))
	}
	b.WhereBetween("CreatedAt", p.FromDate, p.ToDate)
	return b.WhereSearch(p.Search, "ExternalID", "ApplicantName")
}

// filterKey is the canonical form of the filters a cursor is bound to.
func (p ListParams) filterKey() string {
	parts := []string{"tenant=" + p.TenantID.String()}
	if p.Status != nil {
		parts = append(parts, "status="+string(*p.Status))
	}
	if p.FromDate != nil {
		parts = append(parts, "from="+p.FromDate.UTC().Format(time.RFC3339Nano))
	}
	if p.ToDate != nil {
		parts = append(parts, "to="+p.ToDate.UTC().Format(time.RFC3339Nano))
	}
	if p.Search != nil {
		parts = append(parts, "search="+*p.Search)
	}
	return strings.Join(parts, "|")
}

// ListParamsFromQuery parses and validates listing parameters.
func ListParamsFromQuery(values url.Values, cfg pagination.Config) (ListParams, error) {
	p := ListParams{
		SortBy:     defaultSortBy,
		Descending: true,
	}

	tenantID, err := uuid.Parse(values.Get("tenant_id"))
	if err != nil {
		return p, ErrInvalidTenant
	}
	p.TenantID = tenantID

	if v := values.Get("status"); v != "" {
		s, err := ParseStatus(v)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}

	if p.FromDate, err = parseDate(values.Get("from_date")); err != nil {
		return p, fmt.Errorf("%w: from_date: %v", ErrValidation, err)
	}
	if p.ToDate, err = parseDate(values.Get("to_date")); err != nil {
		return p, fmt.Errorf("%w: to_date: %v", ErrValidation, err)
	}
	if p.FromDate != nil && p.ToDate != nil && p.FromDate.After(*p.ToDate) {
		return p, ErrInvalidDateRange
	}

	if v := values.Get("sort_by"); v != "" {
		if _, ok := sortFields[v]; !ok {
			return p, fmt.Errorf("%w: sort_by must be one of created_at, submitted_at, amount, score", ErrInvalidSort)
		}
		p.SortBy = v
	}

	switch strings.ToLower(values.Get("sort_order")) {
	case "", "desc":
	case "asc":
		p.Descending = false
	default:
		return p, fmt.Errorf("%w: sort_order must be asc or desc", ErrInvalidSort)
	}

	page, err := pagination.PageRequestFromQuery(values, cfg)
	if err != nil {
		return p, err
	}
	p.Page = page.Page
	p.PageSize = page.PageSize
	p.Search = page.Search
	p.Cursor = page.Cursor

	return p, nil
}

// parseDate accepts RFC 3339 or a naive timestamp or date, treated as UTC.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

func scanTargets(a *Application, metadata *[]byte) []any {
	return []any{
		&a.ID,
		&a.TenantID,
		&a.ExternalID,
		&a.Status,
		(*[]byte)(&a.ApplicantData),
		(*[]byte)(&a.FinancialData),
		(*[]byte)(&a.LoanRequest),
		(*[]byte)(&a.CreditBureauData),
		&a.Source,
		metadata,
		&a.Version,
		&a.SubmittedAt,
		&a.ExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

func decodeMetadata(a *Application, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &a.Metadata); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}

func scanApplication(s repository.Scanner) (Application, error) {
	var a Application
	var metadata []byte
	if err := s.Scan(scanTargets(&a, &metadata)...); err != nil {
		return a, err
	}
	return a, decodeMetadata(&a, metadata)
}

func scanScoredApplication(s repository.Scanner) (Application, error) {
	var a Application
	var metadata []byte
	if err := s.Scan(append(scanTargets(&a, &metadata), &a.Score)...); err != nil {
		return a, err
	}
	return a, decodeMetadata(&a, metadata)
}
