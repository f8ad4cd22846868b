package decisions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "decisions", "dc").
	Project("id", "ID").
	Project("application_id", "ApplicationID").
	Project("scoring_result_id", "ScoringResultID").
	Project("analyst_id", "AnalystID").
	Project("decision_type", "DecisionType").
	Project("decision_outcome", "DecisionOutcome").
	Project("approved_terms", "ApprovedTerms").
	Project("conditions", "Conditions").
	Project("reasoning", "Reasoning").
	Project("reasoning_category", "ReasoningCategory").
	Project("override_flag", "OverrideFlag").
	Project("override_direction", "OverrideDirection").
	Project("override_justification", "OverrideJustification").
	Project("override_approved_by", "OverrideApprovedBy").
	Project("override_approved_at", "OverrideApprovedAt").
	Project("review_time_seconds", "ReviewTimeSeconds").
	Project("created_at", "CreatedAt")

var historySort = []query.SortField{
	{Field: "CreatedAt"},
	{Field: "ID"},
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a decisions repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "decisions"),
	}
}

func (r *repo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Decision, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ApplicationID", applicationID).
		OrderByFields(historySort).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanDecision)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	return items, nil
}

func scanDecision(s repository.Scanner) (Decision, error) {
	var d Decision
	err := s.Scan(
		&d.ID,
		&d.ApplicationID,
		&d.ScoringResultID,
		&d.AnalystID,
		&d.DecisionType,
		&d.DecisionOutcome,
		(*[]byte)(&d.ApprovedTerms),
		(*[]byte)(&d.Conditions),
		&d.Reasoning,
		&d.ReasoningCategory,
		&d.OverrideFlag,
		&d.OverrideDirection,
		&d.OverrideJustification,
		&d.OverrideApprovedBy,
		&d.OverrideApprovedAt,
		&d.ReviewTimeSeconds,
		&d.CreatedAt,
	)
	return d, err
}
