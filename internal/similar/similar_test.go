package similar_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/underwrite/internal/similar"
)

var caseColumns = []string{
	"id", "application_id", "matched_application_id", "match_score",
	"features_snapshot", "outcome_snapshot", "method", "created_at",
}

func TestListByApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sys := similar.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	appID := uuid.New()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sc.match_score DESC, sc.id ASC")).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows(caseColumns).
			AddRow(uuid.NewString(), appID.String(), uuid.NewString(), 0.93,
				[]byte(`{"dti":0.3}`), []byte(`{"outcome":"repaid"}`), "vector", now).
			AddRow(uuid.NewString(), appID.String(), uuid.NewString(), 0.71,
				[]byte(`{}`), []byte(`{}`), "vector", now))

	got, err := sys.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.93, got[0].MatchScore)
	assert.JSONEq(t, `{"outcome":"repaid"}`, string(got[0].OutcomeSnapshot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByApplicationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sys := similar.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectQuery("FROM public.similar_cases sc").WillReturnError(errors.New("connection reset"))

	_, err = sys.ListByApplication(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "query similar cases")
}
