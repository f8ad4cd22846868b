// Package applications manages the credit application lifecycle: intake, field
// edits while pending, status transitions, cancellation, and the tenant-scoped
// listing and detail views.
package applications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/internal/decisions"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/internal/scoring"
	"github.com/JaimeStill/underwrite/internal/similar"
)

// Intake defaults.
const (
	DefaultSource   = "web"
	ExpiryWindow    = 30 * 24 * time.Hour
	ExternalIDBytes = 5
)

// Metadata is the server-maintained JSON document stored with an application.
type Metadata struct {
	Derived Derived `json:"derived"`
}

// Application is a credit application owned by a tenant.
// Score is the latest scoring result's score, nil when unscored.
type Application struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	ExternalID       string          `json:"external_id"`
	Status           Status          `json:"status"`
	ApplicantData    json.RawMessage `json:"applicant_data"`
	FinancialData    json.RawMessage `json:"financial_data"`
	LoanRequest      json.RawMessage `json:"loan_request"`
	CreditBureauData json.RawMessage `json:"credit_bureau_data"`
	Source           string          `json:"source"`
	Metadata         Metadata        `json:"metadata"`
	Version          int             `json:"version"`
	SubmittedAt      time.Time       `json:"submitted_at"`
	ExpiresAt        *time.Time      `json:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Score            *int            `json:"score"`
}

// Detail is an application with its scoring, queue, decision, and similarity context.
type Detail struct {
	Application
	ScoringResult   *scoring.Result      `json:"scoring_result"`
	QueueInfo       *queue.Entry         `json:"queue_info"`
	DecisionHistory []decisions.Decision `json:"decision_history"`
	SimilarCases    []similar.Case       `json:"similar_cases"`
}

// CreateCommand submits a new application. ExternalID and Source are optional.
type CreateCommand struct {
	TenantID         uuid.UUID       `json:"tenant_id"`
	ExternalID       *string         `json:"external_id,omitempty"`
	ApplicantData    json.RawMessage `json:"applicant_data"`
	FinancialData    json.RawMessage `json:"financial_data"`
	LoanRequest      json.RawMessage `json:"loan_request"`
	CreditBureauData json.RawMessage `json:"credit_bureau_data,omitempty"`
	Source           *string         `json:"source,omitempty"`
}

// UpdateCommand is a partial edit. Absent fields are left unchanged; a JSON null
// credit_bureau_data clears it. Status requests a transition as a public actor.
type UpdateCommand struct {
	ExternalID       *string         `json:"external_id,omitempty"`
	ApplicantData    json.RawMessage `json:"applicant_data,omitempty"`
	FinancialData    json.RawMessage `json:"financial_data,omitempty"`
	LoanRequest      json.RawMessage `json:"loan_request,omitempty"`
	CreditBureauData json.RawMessage `json:"credit_bureau_data,omitempty"`
	Source           *string         `json:"source,omitempty"`
	Status           *Status         `json:"status,omitempty"`
}

// EditsFields reports whether the command changes any field other than status.
func (c UpdateCommand) EditsFields() bool {
	return c.ExternalID != nil ||
		len(c.ApplicantData) > 0 ||
		len(c.FinancialData) > 0 ||
		len(c.LoanRequest) > 0 ||
		len(c.CreditBureauData) > 0 ||
		c.Source != nil
}

// TransitionCommand moves an application to a new status. The routing fields
// apply when the target is review and a queue entry is created.
type TransitionCommand struct {
	Status         Status  `json:"status"`
	RoutingReason  *string `json:"routing_reason,omitempty"`
	ScoreAtRouting *int    `json:"score_at_routing,omitempty"`
	IsVIP          bool    `json:"is_vip"`
}
