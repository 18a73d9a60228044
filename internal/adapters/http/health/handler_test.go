package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fiskal/internal/core/receipt"
	"fiskal/internal/testutil"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type stubCleaner struct {
	stale  []receipt.StaleRecord
	err    error
	called bool
}

func (s *stubCleaner) CleanupStale(ctx context.Context, maxAge time.Duration) ([]receipt.StaleRecord, error) {
	s.called = true
	return s.stale, s.err
}

func setCompleteEnv(t *testing.T) {
	t.Helper()
	for _, name := range requiredEnvVars {
		t.Setenv(name, "test-value")
	}
}

func check(h *Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HandleCheck(w, req)
	return w
}

func TestHealthReportsMissingEnv(t *testing.T) {
	setCompleteEnv(t)
	t.Setenv("FINA_ENDPOINT", "")

	h := NewHandler(stubPinger{}, nil, time.Minute, testutil.NewNullLogger())
	w := check(h)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp map[string]any
	testutil.DecodeJSONResponse(t, w, &resp)
	if resp["environment"] != "incomplete" {
		t.Errorf("expected incomplete environment, got %v", resp)
	}
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	setCompleteEnv(t)

	h := NewHandler(stubPinger{err: errors.New("refused")}, nil, time.Minute, testutil.NewNullLogger())
	w := check(h)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp map[string]any
	testutil.DecodeJSONResponse(t, w, &resp)
	if resp["database"] != "disconnected" {
		t.Errorf("expected disconnected database, got %v", resp)
	}
}

func TestHealthHealthyRunsCleanup(t *testing.T) {
	setCompleteEnv(t)

	cleaner := &stubCleaner{stale: []receipt.StaleRecord{{ReceiptNumber: 3, ExternalID: "pi_x"}}}
	h := NewHandler(stubPinger{}, cleaner, time.Minute, testutil.NewNullLogger())
	w := check(h)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !cleaner.called {
		t.Error("expected the stale sweep to run on a healthy check")
	}

	var resp map[string]any
	testutil.DecodeJSONResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", resp)
	}
}

func TestHealthCleanupFailureDoesNotFailCheck(t *testing.T) {
	setCompleteEnv(t)

	cleaner := &stubCleaner{err: errors.New("sweep failed")}
	h := NewHandler(stubPinger{}, cleaner, time.Minute, testutil.NewNullLogger())
	w := check(h)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 despite cleanup failure, got %d", w.Code)
	}
}
