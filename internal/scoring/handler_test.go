package scoring_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/internal/scoring"
	"github.com/JaimeStill/underwrite/pkg/routes"
)

type mockSystem struct {
	latestFn func(ctx context.Context, applicationID uuid.UUID) (*scoring.Result, error)
	recordFn func(ctx context.Context, cmd scoring.RecordCommand) (*scoring.Result, error)
}

func (m *mockSystem) Handler() *scoring.Handler {
	return scoring.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (m *mockSystem) Latest(ctx context.Context, applicationID uuid.UUID) (*scoring.Result, error) {
	return m.latestFn(ctx, applicationID)
}

func (m *mockSystem) Record(ctx context.Context, cmd scoring.RecordCommand) (*scoring.Result, error) {
	return m.recordFn(ctx, cmd)
}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().InternalRoutes())
	return mux
}

var appID = uuid.MustParse("7d6f1c38-4a8e-4c8b-9a7e-2b7f6f0b1c11")

func TestRecord(t *testing.T) {
	var got scoring.RecordCommand
	sys := &mockSystem{
		recordFn: func(ctx context.Context, cmd scoring.RecordCommand) (*scoring.Result, error) {
			got = cmd
			return &scoring.Result{ID: uuid.New(), ApplicationID: cmd.ApplicationID, Score: cmd.Score}, nil
		},
	}

	body := `{"model_id":"gbm","model_version":"1.2","score":712,"probability_default":0.04,"risk_category":"low","routing_decision":"review"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/applications/"+appID.String()+"/scores", bytes.NewBufferString(body))
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	if got.ApplicationID != appID || got.Score != 712 || got.ModelID != "gbm" {
		t.Errorf("command: got %+v", got)
	}

	var result scoring.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result.Score != 712 {
		t.Errorf("score: got %d, want 712", result.Score)
	}
}

func TestRecordErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed id", "/applications/nope/scores", `{}`, nil, http.StatusNotFound},
		{"malformed body", "/applications/" + appID.String() + "/scores", `{`, nil, http.StatusBadRequest},
		{"unknown application", "/applications/" + appID.String() + "/scores", `{}`, scoring.ErrApplicationNotFound, http.StatusNotFound},
		{"validation", "/applications/" + appID.String() + "/scores", `{}`, scoring.ErrValidation, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				recordFn: func(ctx context.Context, cmd scoring.RecordCommand) (*scoring.Result, error) {
					return nil, tt.err
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", tt.path, bytes.NewBufferString(tt.body))
			setupMux(sys).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRecordCommandValidate(t *testing.T) {
	valid := scoring.RecordCommand{
		ModelID:            "gbm",
		ModelVersion:       "1",
		Score:              600,
		ProbabilityDefault: 0.1,
		RiskCategory:       "medium",
		RoutingDecision:    "review",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid command rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *scoring.RecordCommand)
	}{
		{"missing model", func(c *scoring.RecordCommand) { c.ModelID = "" }},
		{"negative score", func(c *scoring.RecordCommand) { c.Score = -1 }},
		{"probability above one", func(c *scoring.RecordCommand) { c.ProbabilityDefault = 1.5 }},
		{"missing routing", func(c *scoring.RecordCommand) { c.RoutingDecision = "" }},
		{"negative timing", func(c *scoring.RecordCommand) { c.ScoringTimeMs = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mutate(&cmd)
			if err := cmd.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
