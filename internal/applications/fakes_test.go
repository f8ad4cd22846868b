package applications_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/underwrite/internal/applications"
	"github.com/JaimeStill/underwrite/internal/audit"
	"github.com/JaimeStill/underwrite/internal/decisions"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/internal/scoring"
	"github.com/JaimeStill/underwrite/internal/similar"
	"github.com/JaimeStill/underwrite/pkg/lifecycle"
	"github.com/JaimeStill/underwrite/pkg/metrics"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var appColumns = []string{
	"id", "tenant_id", "external_id", "status", "applicant_data", "financial_data",
	"loan_request", "credit_bureau_data", "source", "metadata", "version",
	"submitted_at", "expires_at", "created_at", "updated_at",
}

var scoredColumns = append(append([]string{}, appColumns...), "score")

const (
	applicantJSON = `{"name": "Jane Doe"}`
	financialJSON = `{"net_monthly_income": 1000, "monthly_obligations": 200, "existing_loans_payment": 100}`
	loanJSON      = `{"loan_amount": 12000, "estimated_payment": 300}`
)

type appRow struct {
	id       uuid.UUID
	tenantID uuid.UUID
	status   applications.Status
	version  int
	created  time.Time
	score    any
}

func (r appRow) values(scored bool) []driver.Value {
	v := []driver.Value{
		r.id.String(), r.tenantID.String(), "APP-0000000001", string(r.status),
		[]byte(applicantJSON), []byte(financialJSON), []byte(loanJSON), nil,
		"web", []byte(`{"derived": {"dti_ratio": 0.3, "loan_to_income": 1, "payment_to_income": 0.3}}`),
		r.version, r.created, r.created.Add(applications.ExpiryWindow), r.created, r.created,
	}
	if scored {
		v = append(v, r.score)
	}
	return v
}

type fakeAudit struct {
	records  []audit.RecordCommand
	archived int
}

func (f *fakeAudit) Handler() *audit.Handler { return nil }

func (f *fakeAudit) Record(ctx context.Context, tx *sql.Tx, cmd audit.RecordCommand) (*audit.Entry, error) {
	f.records = append(f.records, cmd)
	return &audit.Entry{ID: uuid.New(), EntityID: cmd.EntityID, Action: cmd.Action}, nil
}

func (f *fakeAudit) Archive(ctx context.Context, entry *audit.Entry) { f.archived++ }

func (f *fakeAudit) List(ctx context.Context, tenantID, entityID uuid.UUID) ([]audit.Entry, error) {
	return nil, nil
}

type fakeQueue struct {
	created []queue.CreateCommand
	latest  *queue.Entry
	err     error
}

func (f *fakeQueue) Handler() *queue.Handler                { return nil }
func (f *fakeQueue) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeQueue) Create(ctx context.Context, cmd queue.CreateCommand) (*queue.Entry, error) {
	return f.CreateTx(ctx, nil, cmd)
}

func (f *fakeQueue) CreateTx(ctx context.Context, tx *sql.Tx, cmd queue.CreateCommand) (*queue.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, cmd)
	return &queue.Entry{ID: uuid.New(), ApplicationID: cmd.ApplicationID}, nil
}

func (f *fakeQueue) List(ctx context.Context, tenantID uuid.UUID, params queue.ListParams) (*queue.ListResult, error) {
	return &queue.ListResult{}, nil
}

func (f *fakeQueue) Summary(ctx context.Context, tenantID uuid.UUID, now time.Time) (*queue.Summary, error) {
	return &queue.Summary{}, nil
}

func (f *fakeQueue) Latest(ctx context.Context, applicationID uuid.UUID) (*queue.Entry, error) {
	return f.latest, nil
}

func (f *fakeQueue) SweepBreaches(ctx context.Context, now time.Time) (int, error) { return 0, nil }

type fakeScoring struct {
	latest *scoring.Result
}

func (f *fakeScoring) Handler() *scoring.Handler { return nil }

func (f *fakeScoring) Latest(ctx context.Context, applicationID uuid.UUID) (*scoring.Result, error) {
	return f.latest, nil
}

func (f *fakeScoring) Record(ctx context.Context, cmd scoring.RecordCommand) (*scoring.Result, error) {
	return nil, nil
}

type fakeDecisions struct {
	items []decisions.Decision
}

func (f *fakeDecisions) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]decisions.Decision, error) {
	return f.items, nil
}

type fakeSimilar struct {
	items []similar.Case
	err   error
}

func (f *fakeSimilar) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]similar.Case, error) {
	return f.items, f.err
}

type fakeBroker struct {
	published []string
	args      [][]any
}

func (f *fakeBroker) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeBroker) Ping(ctx context.Context) error { return nil }

func (f *fakeBroker) Publish(ctx context.Context, name string, args ...any) (string, error) {
	f.published = append(f.published, name)
	f.args = append(f.args, args)
	return uuid.NewString(), nil
}

type collaborators struct {
	audit     *fakeAudit
	queue     *fakeQueue
	scoring   *fakeScoring
	decisions *fakeDecisions
	similar   *fakeSimilar
	broker    *fakeBroker
}

func newRepo(t *testing.T) (applications.System, sqlmock.Sqlmock, *collaborators) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &collaborators{
		audit:     &fakeAudit{},
		queue:     &fakeQueue{},
		scoring:   &fakeScoring{},
		decisions: &fakeDecisions{},
		similar:   &fakeSimilar{},
		broker:    &fakeBroker{},
	}

	sys := applications.New(
		db,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pageConfig(),
		metrics.New("test"),
		c.broker,
		c.audit,
		c.queue,
		c.scoring,
		c.decisions,
		c.similar,
		applications.WithClock(func() time.Time { return fixedNow }),
	)
	return sys, mock, c
}

// jsonArg matches a driver argument holding JSON equal to the expected document.
type jsonArg string

func (j jsonArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var got, want any
	if json.Unmarshal([]byte(s), &got) != nil || json.Unmarshal([]byte(j), &want) != nil {
		return false
	}
	gb, _ := json.Marshal(got)
	wb, _ := json.Marshal(want)
	return string(gb) == string(wb)
}

// patternArg matches a string argument against a regular expression.
type patternArg string

func (p patternArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && regexp.MustCompile(string(p)).MatchString(s)
}
