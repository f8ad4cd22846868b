// Package decisions reads back the human and automated verdicts recorded against
// an application. Decisions are written by the review tooling and never modified here.
package decisions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Decision is a terminal verdict tied to an application and optionally a scoring result.
type Decision struct {
	ID                    uuid.UUID       `json:"id"`
	ApplicationID         uuid.UUID       `json:"application_id"`
	ScoringResultID       *uuid.UUID      `json:"scoring_result_id"`
	AnalystID             *uuid.UUID      `json:"analyst_id"`
	DecisionType          string          `json:"decision_type"`
	DecisionOutcome       string          `json:"decision_outcome"`
	ApprovedTerms         json.RawMessage `json:"approved_terms"`
	Conditions            json.RawMessage `json:"conditions"`
	Reasoning             *string         `json:"reasoning"`
	ReasoningCategory     *string         `json:"reasoning_category"`
	OverrideFlag          bool            `json:"override_flag"`
	OverrideDirection     *string         `json:"override_direction"`
	OverrideJustification *string         `json:"override_justification"`
	OverrideApprovedBy    *uuid.UUID      `json:"override_approved_by"`
	OverrideApprovedAt    *time.Time      `json:"override_approved_at"`
	ReviewTimeSeconds     *int            `json:"review_time_seconds"`
	CreatedAt             time.Time       `json:"created_at"`
}

// System defines the read contract for decisions.
type System interface {
	// ListByApplication returns the decision history in creation order.
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Decision, error)
}
