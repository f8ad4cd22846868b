package scoring

import (
	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "scoring_results", "sr").
	Project("id", "ID").
	Project("application_id", "ApplicationID").
	Project("model_id", "ModelID").
	Project("model_version", "ModelVersion").
	Project("score", "Score").
	Project("probability_default", "ProbabilityDefault").
	Project("risk_category", "RiskCategory").
	Project("routing_decision", "RoutingDecision").
	Project("threshold_config_id", "ThresholdConfigID").
	Project("features", "Features").
	Project("shap_values", "ShapValues").
	Project("top_factors", "TopFactors").
	Project("scoring_time_ms", "ScoringTimeMs").
	Project("created_at", "CreatedAt")

var latestSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
	{Field: "ID", Descending: true},
}

func scanResult(s repository.Scanner) (Result, error) {
	var r Result
	err := s.Scan(
		&r.ID,
		&r.ApplicationID,
		&r.ModelID,
		&r.ModelVersion,
		&r.Score,
		&r.ProbabilityDefault,
		&r.RiskCategory,
		&r.RoutingDecision,
		&r.ThresholdConfigID,
		(*[]byte)(&r.Features),
		(*[]byte)(&r.ShapValues),
		(*[]byte)(&r.TopFactors),
		&r.ScoringTimeMs,
		&r.CreatedAt,
	)
	return r, err
}
