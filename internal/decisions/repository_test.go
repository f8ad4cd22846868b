package decisions_test

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/underwrite/internal/decisions"
)

func TestListByApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sys := decisions.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	appID := uuid.New()
	first := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	columns := []string{
		"id", "application_id", "scoring_result_id", "analyst_id", "decision_type", "decision_outcome",
		"approved_terms", "conditions", "reasoning", "reasoning_category", "override_flag",
		"override_direction", "override_justification", "override_approved_by", "override_approved_at",
		"review_time_seconds", "created_at",
	}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE dc.application_id = $1 ORDER BY dc.created_at ASC, dc.id ASC")).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(uuid.NewString(), appID.String(), nil, nil, "automated", "declined",
				nil, nil, nil, nil, false, nil, nil, nil, nil, nil, first).
			AddRow(uuid.NewString(), appID.String(), nil, uuid.NewString(), "manual", "approved",
				[]byte(`{"rate":0.07}`), []byte(`["income proof"]`), "strong history", "credit",
				true, "up", "analyst override", nil, nil, 420, first.Add(time.Hour)))

	got, err := sys.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "declined", got[0].DecisionOutcome)
	assert.Nil(t, got[0].AnalystID)
	assert.Nil(t, got[0].ApprovedTerms)

	assert.True(t, got[1].OverrideFlag)
	require.NotNil(t, got[1].ReviewTimeSeconds)
	assert.Equal(t, 420, *got[1].ReviewTimeSeconds)
	assert.JSONEq(t, `{"rate":0.07}`, string(got[1].ApprovedTerms))
	assert.NoError(t, mock.ExpectationsWereMet())
}
