package applications_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/underwrite/internal/applications"
	"github.com/JaimeStill/underwrite/internal/audit"
	"github.com/JaimeStill/underwrite/internal/decisions"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/internal/scoring"
)

const (
	derivedJSON  = `{"derived": {"dti_ratio": 0.3, "loan_to_income": 1, "payment_to_income": 0.3}}`
	scopedLoad   = "WHERE a.id = $1 AND a.tenant_id = $2 LIMIT 1"
	unscopedLoad = "WHERE a.id = $1 LIMIT 1"
	insertApp    = "INSERT INTO applications AS a"
	updateApp    = "UPDATE applications AS a"
)

func validCreate() applications.CreateCommand {
	return applications.CreateCommand{
		TenantID:      uuid.MustParse(tenant),
		ApplicantData: json.RawMessage(applicantJSON),
		FinancialData: json.RawMessage(financialJSON),
		LoanRequest:   json.RawMessage(loanJSON),
	}
}

func storedRow(status applications.Status, version int) appRow {
	return appRow{
		id:       uuid.MustParse("5b0e3f0a-9c43-4d4e-8a71-0c2f0c7f9e01"),
		tenantID: uuid.MustParse(tenant),
		status:   status,
		version:  version,
		created:  fixedNow,
	}
}

func TestCreate(t *testing.T) {
	sys, mock, c := newRepo(t)
	row := storedRow(applications.StatusPending, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insertApp)).
		WithArgs(
			sqlmock.AnyArg(),
			row.tenantID,
			patternArg(`^APP-[0-9A-F]{10}$`),
			"pending",
			jsonArg(applicantJSON),
			jsonArg(financialJSON),
			jsonArg(loanJSON),
			nil,
			"web",
			jsonArg(derivedJSON),
			fixedNow,
			fixedNow.Add(applications.ExpiryWindow),
		).
		WillReturnRows(listRows(false, row))
	mock.ExpectCommit()

	app, err := sys.Create(context.Background(), validCreate())
	require.NoError(t, err)

	assert.Equal(t, row.id, app.ID)
	assert.Equal(t, applications.StatusPending, app.Status)
	require.NotNil(t, app.Metadata.Derived.DTIRatio)
	assert.InDelta(t, 0.3, *app.Metadata.Derived.DTIRatio, 1e-9)

	require.Len(t, c.audit.records, 1)
	assert.Equal(t, audit.ActionCreate, c.audit.records[0].Action)
	assert.Equal(t, row.id, c.audit.records[0].EntityID)
	assert.Equal(t, 1, c.audit.archived)

	assert.Equal(t, []string{applications.TaskScoreApplication}, c.broker.published)
	assert.Equal(t, []any{row.id.String()}, c.broker.args[0])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateKeepsExternalIDAndSource(t *testing.T) {
	sys, mock, _ := newRepo(t)
	row := storedRow(applications.StatusPending, 1)

	cmd := validCreate()
	externalID := "  LOS-42  "
	source := "branch"
	cmd.ExternalID = &externalID
	cmd.Source = &source

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insertApp)).
		WithArgs(
			sqlmock.AnyArg(), row.tenantID, "LOS-42", "pending",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil,
			"branch", sqlmock.AnyArg(), fixedNow, sqlmock.AnyArg(),
		).
		WillReturnRows(listRows(false, row))
	mock.ExpectCommit()

	_, err := sys.Create(context.Background(), cmd)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejected(t *testing.T) {
	tests := []struct {
		name string
		edit func(*applications.CreateCommand)
		want error
	}{
		{"missing tenant", func(c *applications.CreateCommand) { c.TenantID = uuid.Nil }, applications.ErrInvalidTenant},
		{"invalid intake", func(c *applications.CreateCommand) { c.LoanRequest = json.RawMessage(`{"loan_amount": 0}`) }, applications.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, mock, c := newRepo(t)

			cmd := validCreate()
			tt.edit(&cmd)

			_, err := sys.Create(context.Background(), cmd)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, c.broker.published)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	sys, mock, c := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insertApp)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := sys.Create(context.Background(), validCreate())
	assert.True(t, errors.Is(err, applications.ErrDuplicate), "got %v", err)
	assert.Empty(t, c.audit.records)
	assert.Empty(t, c.broker.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFind(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		sys, mock, _ := newRepo(t)
		row := storedRow(applications.StatusScoring, 2)
		row.score = 712

		mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
			WithArgs(row.id, row.tenantID).
			WillReturnRows(listRows(true, row))

		app, err := sys.Find(context.Background(), &row.tenantID, row.id)
		require.NoError(t, err)
		require.NotNil(t, app.Score)
		assert.Equal(t, 712, *app.Score)
		assert.Equal(t, 2, app.Version)
	})

	t.Run("other tenant", func(t *testing.T) {
		sys, mock, _ := newRepo(t)
		row := storedRow(applications.StatusPending, 1)
		other := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
			WithArgs(row.id, other).
			WillReturnRows(sqlmock.NewRows(scoredColumns))

		_, err := sys.Find(context.Background(), &other, row.id)
		assert.True(t, errors.Is(err, applications.ErrNotFound), "got %v", err)
	})

	t.Run("unscoped", func(t *testing.T) {
		sys, mock, _ := newRepo(t)
		row := storedRow(applications.StatusPending, 1)

		mock.ExpectQuery(regexp.QuoteMeta(unscopedLoad)).
			WithArgs(row.id).
			WillReturnRows(listRows(true, row))

		app, err := sys.Find(context.Background(), nil, row.id)
		require.NoError(t, err)
		assert.Equal(t, row.tenantID, app.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDetail(t *testing.T) {
	sys, mock, c := newRepo(t)
	row := storedRow(applications.StatusReview, 3)

	c.scoring.latest = &scoring.Result{ID: uuid.New(), ApplicationID: row.id}
	c.queue.latest = &queue.Entry{ID: uuid.New(), ApplicationID: row.id}
	c.decisions.items = []decisions.Decision{{ID: uuid.New(), ApplicationID: row.id}}

	mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
		WithArgs(row.id, row.tenantID).
		WillReturnRows(listRows(true, row))

	detail, err := sys.Detail(context.Background(), &row.tenantID, row.id)
	require.NoError(t, err)

	assert.Equal(t, row.id, detail.ID)
	assert.Equal(t, c.scoring.latest, detail.ScoringResult)
	assert.Equal(t, c.queue.latest, detail.QueueInfo)
	assert.Len(t, detail.DecisionHistory, 1)
	assert.NotNil(t, detail.SimilarCases)
	assert.Empty(t, detail.SimilarCases)
}

func TestDetailCollaboratorFailure(t *testing.T) {
	sys, mock, c := newRepo(t)
	row := storedRow(applications.StatusPending, 1)
	c.similar.err = errors.New("similar cases unavailable")

	mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
		WillReturnRows(listRows(true, row))

	_, err := sys.Detail(context.Background(), &row.tenantID, row.id)
	assert.ErrorContains(t, err, "similar cases unavailable")
}

func TestUpdateRecomputesDerived(t *testing.T) {
	sys, mock, c := newRepo(t)
	current := storedRow(applications.StatusPending, 3)
	updated := storedRow(applications.StatusPending, 4)

	financial := `{"net_monthly_income": 2000, "monthly_obligations": 200, "existing_loans_payment": 100}`

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
		WithArgs(current.id, current.tenantID).
		WillReturnRows(listRows(true, current))
	mock.ExpectQuery(regexp.QuoteMeta(updateApp)).
		WithArgs(
			current.id, 3, "APP-0000000001", "pending",
			jsonArg(applicantJSON), jsonArg(financial), jsonArg(loanJSON), nil, "web",
			jsonArg(`{"derived": {"dti_ratio": 0.15, "loan_to_income": 0.5, "payment_to_income": 0.15}}`),
		).
		WillReturnRows(listRows(false, updated))
	mock.ExpectCommit()

	app, err := sys.Update(context.Background(), &current.tenantID, current.id, applications.UpdateCommand{
		FinancialData: json.RawMessage(financial),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, app.Version)

	require.Len(t, c.audit.records, 1)
	assert.Equal(t, audit.ActionUpdate, c.audit.records[0].Action)
	assert.Equal(t, "fields: financial_data", c.audit.records[0].ChangeSummary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNoChange(t *testing.T) {
	sys, mock, c := newRepo(t)
	current := storedRow(applications.StatusPending, 2)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
		WillReturnRows(listRows(true, current))
	mock.ExpectCommit()

	pending := applications.StatusPending
	app, err := sys.Update(context.Background(), &current.tenantID, current.id, applications.UpdateCommand{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, 2, app.Version)
	assert.Empty(t, c.audit.records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejected(t *testing.T) {
	scoringStatus := applications.StatusScoring
	cancelled := applications.StatusCancelled
	source := "branch"

	tests := []struct {
		name    string
		current applications.Status
		cmd     applications.UpdateCommand
		want    error
	}{
		{"edit after pending", applications.StatusReview, applications.UpdateCommand{Source: &source}, applications.ErrNotEditable},
		{"internal edge", applications.StatusPending, applications.UpdateCommand{Status: &scoringStatus}, applications.ErrInternalOnly},
		{"terminal status", applications.StatusApproved, applications.UpdateCommand{Status: &cancelled}, applications.ErrInvalidTransition},
		{"invalid intake", applications.StatusPending, applications.UpdateCommand{LoanRequest: json.RawMessage(`{}`)}, applications.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, mock, c := newRepo(t)
			current := storedRow(tt.current, 1)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
				WillReturnRows(listRows(true, current))
			mock.ExpectRollback()

			_, err := sys.Update(context.Background(), &current.tenantID, current.id, tt.cmd)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Empty(t, c.audit.records)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateConflict(t *testing.T) {
	sys, mock, _ := newRepo(t)
	current := storedRow(applications.StatusPending, 5)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
		WillReturnRows(listRows(true, current))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.id = $1 AND a.version = $2")).
		WillReturnRows(sqlmock.NewRows(appColumns))
	mock.ExpectRollback()

	source := "branch"
	_, err := sys.Update(context.Background(), &current.tenantID, current.id, applications.UpdateCommand{Source: &source})
	assert.True(t, errors.Is(err, applications.ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	cancelSQL := "UPDATE applications SET status = $1, version = version + 1 WHERE id = $2 AND version = $3"

	t.Run("pending", func(t *testing.T) {
		sys, mock, c := newRepo(t)
		current := storedRow(applications.StatusPending, 2)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
			WillReturnRows(listRows(true, current))
		mock.ExpectExec(regexp.QuoteMeta(cancelSQL)).
			WithArgs("cancelled", current.id, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, sys.Cancel(context.Background(), &current.tenantID, current.id))
		require.Len(t, c.audit.records, 1)
		assert.Equal(t, audit.ActionCancel, c.audit.records[0].Action)
		assert.Equal(t, 1, c.audit.archived)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already cancelled", func(t *testing.T) {
		sys, mock, c := newRepo(t)
		current := storedRow(applications.StatusCancelled, 3)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
			WillReturnRows(listRows(true, current))
		mock.ExpectCommit()

		require.NoError(t, sys.Cancel(context.Background(), &current.tenantID, current.id))
		assert.Empty(t, c.audit.records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("past pending", func(t *testing.T) {
		sys, mock, _ := newRepo(t)
		current := storedRow(applications.StatusReview, 3)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
			WillReturnRows(listRows(true, current))
		mock.ExpectRollback()

		err := sys.Cancel(context.Background(), &current.tenantID, current.id)
		assert.True(t, errors.Is(err, applications.ErrNotCancellable), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent change", func(t *testing.T) {
		sys, mock, _ := newRepo(t)
		current := storedRow(applications.StatusPending, 2)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(scopedLoad)).
			WillReturnRows(listRows(true, current))
		mock.ExpectExec(regexp.QuoteMeta(cancelSQL)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := sys.Cancel(context.Background(), &current.tenantID, current.id)
		assert.True(t, errors.Is(err, applications.ErrConflict), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransitionToReviewQueuesApplication(t *testing.T) {
	sys, mock, c := newRepo(t)
	current := storedRow(applications.StatusScoring, 2)
	updated := storedRow(applications.StatusReview, 3)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(unscopedLoad)).
		WithArgs(current.id).
		WillReturnRows(listRows(true, current))
	mock.ExpectQuery(regexp.QuoteMeta(updateApp)).
		WithArgs(
			current.id, 2, sqlmock.AnyArg(), "review",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, "web", sqlmock.AnyArg(),
		).
		WillReturnRows(listRows(false, updated))
	mock.ExpectCommit()

	score := 640
	reason := "manual review band"
	app, err := sys.Transition(context.Background(), current.id, applications.ActorInternal, applications.TransitionCommand{
		Status:         applications.StatusReview,
		ScoreAtRouting: &score,
		RoutingReason:  &reason,
		IsVIP:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, applications.StatusReview, app.Status)

	require.Len(t, c.queue.created, 1)
	assert.Equal(t, queue.CreateCommand{
		ApplicationID:  current.id,
		ScoreAtRouting: &score,
		RoutingReason:  &reason,
		IsVIP:          true,
	}, c.queue.created[0])

	require.Len(t, c.audit.records, 1)
	assert.Equal(t, audit.ActionTransition, c.audit.records[0].Action)
	assert.Equal(t, string(applications.ActorInternal), c.audit.records[0].Actor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRejected(t *testing.T) {
	t.Run("invalid edge", func(t *testing.T) {
		sys, mock, c := newRepo(t)
		current := storedRow(applications.StatusPending, 1)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(unscopedLoad)).
			WillReturnRows(listRows(true, current))
		mock.ExpectRollback()

		_, err := sys.Transition(context.Background(), current.id, applications.ActorInternal, applications.TransitionCommand{
			Status: applications.StatusApproved,
		})
		var te *applications.TransitionError
		require.True(t, errors.As(err, &te), "got %v", err)
		assert.Equal(t, applications.StatusPending, te.From)
		assert.Equal(t, applications.StatusApproved, te.To)
		assert.Empty(t, c.queue.created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("queue failure rolls back", func(t *testing.T) {
		sys, mock, c := newRepo(t)
		current := storedRow(applications.StatusScoring, 2)
		c.queue.err = queue.ErrApplicationNotFound

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(unscopedLoad)).
			WillReturnRows(listRows(true, current))
		mock.ExpectQuery(regexp.QuoteMeta(updateApp)).
			WillReturnRows(listRows(false, storedRow(applications.StatusReview, 3)))
		mock.ExpectRollback()

		_, err := sys.Transition(context.Background(), current.id, applications.ActorInternal, applications.TransitionCommand{
			Status: applications.StatusReview,
		})
		assert.True(t, errors.Is(err, queue.ErrApplicationNotFound), "got %v", err)
		assert.Empty(t, c.audit.records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
