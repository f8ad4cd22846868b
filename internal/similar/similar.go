// Package similar reads back historical applications matched to an application by
// the similarity subsystem.
package similar

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

// Case is a historical application matched to the subject application.
type Case struct {
	ID                   uuid.UUID       `json:"id"`
	ApplicationID        uuid.UUID       `json:"application_id"`
	MatchedApplicationID uuid.UUID       `json:"matched_application_id"`
	MatchScore           float64         `json:"match_score"`
	FeaturesSnapshot     json.RawMessage `json:"features_snapshot"`
	OutcomeSnapshot      json.RawMessage `json:"outcome_snapshot"`
	Method               string          `json:"method"`
	CreatedAt            time.Time       `json:"created_at"`
}

// System defines the read contract for similar cases.
type System interface {
	// ListByApplication returns matches ordered by descending match score.
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Case, error)
}

var projection = query.
	NewProjectionMap("public", "similar_cases", "sc").
	Project("id", "ID").
	Project("application_id", "ApplicationID").
	Project("matched_application_id", "MatchedApplicationID").
	Project("match_score", "MatchScore").
	Project("features_snapshot", "FeaturesSnapshot").
	Project("outcome_snapshot", "OutcomeSnapshot").
	Project("method", "Method").
	Project("created_at", "CreatedAt")

var matchSort = []query.SortField{
	{Field: "MatchScore", Descending: true},
	{Field: "ID"},
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a similar-case repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "similar"),
	}
}

func (r *repo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Case, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ApplicationID", applicationID).
		OrderByFields(matchSort).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanCase)
	if err != nil {
		return nil, fmt.Errorf("query similar cases: %w", err)
	}
	return items, nil
}

func scanCase(s repository.Scanner) (Case, error) {
	var c Case
	err := s.Scan(
		&c.ID,
		&c.ApplicationID,
		&c.MatchedApplicationID,
		&c.MatchScore,
		(*[]byte)(&c.FeaturesSnapshot),
		(*[]byte)(&c.OutcomeSnapshot),
		&c.Method,
		&c.CreatedAt,
	)
	return c, err
}
