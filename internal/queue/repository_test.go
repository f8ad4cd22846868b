package queue_test

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

	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/pkg/metrics"
)

var (
	fixedNow     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entryColumns = []string{
		"id", "application_id", "analyst_id", "priority", "priority_reason", "status",
		"assigned_at", "started_at", "completed_at", "sla_deadline", "sla_breached",
		"routing_reason", "score_at_routing", "created_at", "updated_at",
	}
)

func newRepo(t *testing.T) (queue.System, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &queue.Config{}
	require.NoError(t, cfg.Finalize(nil))

	sys := queue.New(
		db,
		cfg,
		metrics.New("test"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue.WithClock(func() time.Time { return fixedNow }),
	)
	return sys, mock
}

func TestCreate(t *testing.T) {
	sys, mock := newRepo(t)
	appID := uuid.New()
	entryID := uuid.New()
	score := 700
	deadline := fixedNow.Add(8 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT loan_request FROM applications WHERE id = $1")).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{"loan_request"}).
			AddRow([]byte(`{"loan_amount": 5000001, "term_months": 60}`)))
	mock.ExpectQuery("INSERT INTO analyst_queues AS q").
		WithArgs(sqlmock.AnyArg(), appID, 35, sqlmock.AnyArg(), "pending", deadline, nil, score, fixedNow).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(entryID.String(), appID.String(), nil, 35, "base 50; loan amount above 5,000,000 (-15)", "pending",
				nil, nil, nil, deadline, false, nil, score, fixedNow, fixedNow))
	mock.ExpectCommit()

	entry, err := sys.Create(context.Background(), queue.CreateCommand{
		ApplicationID:  appID,
		ScoreAtRouting: &score,
	})
	require.NoError(t, err)

	assert.Equal(t, entryID, entry.ID)
	assert.Equal(t, 35, entry.Priority)
	assert.Equal(t, queue.StatusPending, entry.Status)
	assert.Equal(t, deadline, entry.SLADeadline)
	assert.False(t, entry.SLABreached)
	assert.Equal(t, queue.BucketMedium, entry.Bucket())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVIP(t *testing.T) {
	sys, mock := newRepo(t)
	appID := uuid.New()
	deadline := fixedNow.Add(8 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT loan_request FROM applications").
		WillReturnRows(sqlmock.NewRows([]string{"loan_request"}).AddRow([]byte(`{"loan_amount": 100}`)))
	mock.ExpectQuery("INSERT INTO analyst_queues AS q").
		WithArgs(sqlmock.AnyArg(), appID, 10, "vip", "pending", deadline, nil, nil, fixedNow).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), appID.String(), nil, 10, "vip", "pending",
				nil, nil, nil, deadline, false, nil, nil, fixedNow, fixedNow))
	mock.ExpectCommit()

	entry, err := sys.Create(context.Background(), queue.CreateCommand{ApplicationID: appID, IsVIP: true})
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Priority)
	assert.Nil(t, entry.ScoreAtRouting)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateApplicationNotFound(t *testing.T) {
	sys, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT loan_request FROM applications").
		WillReturnRows(sqlmock.NewRows([]string{"loan_request"}))
	mock.ExpectRollback()

	_, err := sys.Create(context.Background(), queue.CreateCommand{ApplicationID: uuid.New()})
	assert.ErrorIs(t, err, queue.ErrApplicationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	sys, mock := newRepo(t)
	tenantID := uuid.New()
	status := queue.StatusPending

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM public.analyst_queues q JOIN public.applications a ON a.id = q.application_id WHERE a.tenant_id = $1 AND q.status = $2",
	)).
		WithArgs(tenantID, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY q.priority ASC, q.id ASC LIMIT 2 OFFSET 4")).
		WithArgs(tenantID, "pending").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), uuid.NewString(), nil, 15, nil, "pending",
				nil, nil, nil, fixedNow, true, "manual review", 610, fixedNow, fixedNow))

	result, err := sys.List(context.Background(), tenantID, queue.ListParams{
		Status: &status,
		SortBy: "priority",
		Limit:  2,
		Offset: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 2, result.Limit)
	assert.Equal(t, 4, result.Offset)
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].SLABreached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDescendingTieBreak(t *testing.T) {
	sys, mock := newRepo(t)
	tenantID := uuid.New()
	priorityMax := 20

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.tenant_id = $1 AND q.priority <= $2")).
		WithArgs(tenantID, priorityMax).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY q.sla_deadline DESC, q.id DESC LIMIT 50 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	result, err := sys.List(context.Background(), tenantID, queue.ListParams{
		PriorityMax: &priorityMax,
		SortBy:      "sla_deadline",
		Descending:  true,
		Limit:       50,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummary(t *testing.T) {
	sys, mock := newRepo(t)
	tenantID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT q.status, q.priority, q.sla_deadline FROM public.analyst_queues q JOIN public.applications a ON a.id = q.application_id WHERE a.tenant_id = $1 AND q.status IN ($2, $3, $4)",
	)).
		WithArgs(tenantID, "pending", "assigned", "in_progress").
		WillReturnRows(sqlmock.NewRows([]string{"status", "priority", "sla_deadline"}).
			AddRow("pending", 10, fixedNow.Add(-time.Hour)).
			AddRow("assigned", 35, fixedNow.Add(time.Hour)).
			AddRow("in_progress", 80, fixedNow.Add(5*time.Hour)))

	summary, err := sys.Summary(context.Background(), tenantID, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Assigned)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 1, summary.BreachedSLA)
	assert.Equal(t, 1, summary.ApproachingSLA)
	assert.Equal(t, queue.PriorityHistogram{High: 1, Medium: 1, Low: 1}, summary.ByPriority)
	assert.Equal(t, fixedNow, summary.GeneratedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest(t *testing.T) {
	sys, mock := newRepo(t)
	appID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE q.application_id = $1 ORDER BY q.created_at DESC, q.id DESC LIMIT 1")).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	entry, err := sys.Latest(context.Background(), appID)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepBreaches(t *testing.T) {
	sys, mock := newRepo(t)

	mock.ExpectExec("UPDATE analyst_queues").
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := sys.SweepBreaches(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepBreachesError(t *testing.T) {
	sys, mock := newRepo(t)

	mock.ExpectExec("UPDATE analyst_queues").WillReturnError(errors.New("deadlock detected"))

	_, err := sys.SweepBreaches(context.Background(), fixedNow)
	assert.ErrorContains(t, err, "sweep sla breaches")
}
