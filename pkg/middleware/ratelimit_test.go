package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JaimeStill/underwrite/pkg/middleware"
)

func rateLimited(t *testing.T, cfg *middleware.RateLimitConfig) http.Handler {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return middleware.RateLimit(cfg, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	handler := rateLimited(t, &middleware.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
	})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first requests: got %v, want 200 200", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", codes[2])
	}
}

func TestRateLimitPerClient(t *testing.T) {
	handler := rateLimited(t, &middleware.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             1,
	})

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %s: got %d, want 200", addr, rec.Code)
		}
	}
}

func TestClientLimitersEviction(t *testing.T) {
	cfg := &middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, IdleTTL: "1m"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	limiters := middleware.NewClientLimiters(cfg)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !limiters.Allow("10.0.0.1", start) {
		t.Fatal("first request from 10.0.0.1 rejected")
	}
	if limiters.Allow("10.0.0.1", start.Add(time.Second)) {
		t.Error("second request within burst window allowed")
	}
	limiters.Allow("10.0.0.2", start.Add(30*time.Second))

	limiters.Allow("10.0.0.3", start.Add(50*time.Second))
	if got := limiters.Len(); got != 3 {
		t.Errorf("before ttl elapses: got %d clients, want 3", got)
	}

	limiters.Allow("10.0.0.3", start.Add(95*time.Second))
	if got := limiters.Len(); got != 1 {
		t.Errorf("after sweep: got %d clients, want 1", got)
	}

	if !limiters.Allow("10.0.0.1", start.Add(96*time.Second)) {
		t.Error("evicted client should start with a fresh bucket")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := rateLimited(t, &middleware.RateLimitConfig{Burst: 1, RequestsPerSecond: 0.001})

	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request: %d", rec.Code)
		}
	}
}

func TestRateLimitConfigFinalize(t *testing.T) {
	t.Setenv("TEST_RL_ENABLED", "true")
	t.Setenv("TEST_RL_RPS", "5.5")

	cfg := middleware.RateLimitConfig{}
	err := cfg.Finalize(&middleware.RateLimitEnv{
		Enabled:           "TEST_RL_ENABLED",
		RequestsPerSecond: "TEST_RL_RPS",
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if !cfg.Enabled || cfg.RequestsPerSecond != 5.5 || cfg.Burst != 40 {
		t.Errorf("got %+v", cfg)
	}

	bad := middleware.RateLimitConfig{IdleTTL: "never"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error for invalid idle_ttl")
	}
}
