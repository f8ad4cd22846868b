// Package scoring stores and reads back machine scoring results produced by the
// external scoring subsystem. Results are immutable; consumers use the latest
// by creation time.
package scoring

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Result is a single scoring run for an application.
type Result struct {
	ID                 uuid.UUID       `json:"id"`
	ApplicationID      uuid.UUID       `json:"application_id"`
	ModelID            string          `json:"model_id"`
	ModelVersion       string          `json:"model_version"`
	Score              int             `json:"score"`
	ProbabilityDefault float64         `json:"probability_default"`
	RiskCategory       string          `json:"risk_category"`
	RoutingDecision    string          `json:"routing_decision"`
	ThresholdConfigID  *uuid.UUID      `json:"threshold_config_id"`
	Features           json.RawMessage `json:"features"`
	ShapValues         json.RawMessage `json:"shap_values"`
	TopFactors         json.RawMessage `json:"top_factors"`
	ScoringTimeMs      int             `json:"scoring_time_ms"`
	CreatedAt          time.Time       `json:"created_at"`
}

// RecordCommand carries a scoring run reported by the scoring subsystem.
// ApplicationID is taken from the request path.
type RecordCommand struct {
	ApplicationID      uuid.UUID       `json:"-"`
	ModelID            string          `json:"model_id"`
	ModelVersion       string          `json:"model_version"`
	Score              int             `json:"score"`
	ProbabilityDefault float64         `json:"probability_default"`
	RiskCategory       string          `json:"risk_category"`
	RoutingDecision    string          `json:"routing_decision"`
	ThresholdConfigID  *uuid.UUID      `json:"threshold_config_id,omitempty"`
	Features           json.RawMessage `json:"features,omitempty"`
	ShapValues         json.RawMessage `json:"shap_values,omitempty"`
	TopFactors         json.RawMessage `json:"top_factors,omitempty"`
	ScoringTimeMs      int             `json:"scoring_time_ms"`
}

// Validate checks required fields and numeric ranges.
func (c RecordCommand) Validate() error {
	switch {
	case c.ModelID == "" || c.ModelVersion == "":
		return validationError("model_id and model_version are required")
	case c.Score < 0:
		return validationError("score must be non-negative")
	case c.ProbabilityDefault < 0 || c.ProbabilityDefault > 1:
		return validationError("probability_default must be between 0 and 1")
	case c.RiskCategory == "" || c.RoutingDecision == "":
		return validationError("risk_category and routing_decision are required")
	case c.ScoringTimeMs < 0:
		return validationError("scoring_time_ms must be non-negative")
	}
	return nil
}
