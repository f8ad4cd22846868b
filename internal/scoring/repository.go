package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a scoring repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "scoring"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Latest(ctx context.Context, applicationID uuid.UUID) (*Result, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ApplicationID", applicationID).
		OrderByFields(latestSort).
		BuildLimit(1)

	result, err := repository.QueryOptional(ctx, r.db, q, args, scanResult)
	if err != nil {
		return nil, fmt.Errorf("query latest scoring result: %w", err)
	}
	return result, nil
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO scoring_results AS sr (id, application_id, model_id, model_version, score, probability_default,
			risk_category, routing_decision, threshold_config_id, features, shap_values, top_factors, scoring_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + projection.Columns()

	args := []any{
		uuid.New(),
		cmd.ApplicationID,
		cmd.ModelID,
		cmd.ModelVersion,
		cmd.Score,
		cmd.ProbabilityDefault,
		cmd.RiskCategory,
		cmd.RoutingDecision,
		cmd.ThresholdConfigID,
		jsonOr(cmd.Features, "{}"),
		jsonOr(cmd.ShapValues, "{}"),
		jsonOr(cmd.TopFactors, "[]"),
		cmd.ScoringTimeMs,
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Result, error) {
		return repository.QueryOne(ctx, tx, q, args, scanResult)
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("insert scoring result: %w", err)
	}

	r.logger.Info(
		"scoring result recorded",
		"id", result.ID,
		"application_id", result.ApplicationID,
		"score", result.Score,
	)
	return &result, nil
}

func jsonOr(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	return string(raw)
}
