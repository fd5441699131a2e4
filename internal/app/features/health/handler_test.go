package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/carehub/internal/app/features/health"
	"github.com/dalemusser/carehub/internal/testutil"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	backendUp   = pingFunc(func(context.Context) error { return nil })
	backendDown = pingFunc(func(context.Context) error { return errors.New("connection refused") })
)

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Backend  string `json:"backend"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var out response
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, out
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), backendUp, zap.NewNop())

	rec, out := serve(t, handler)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if out.Status != "ok" || out.Database != "connected" || out.Backend != "reachable" {
		t.Errorf("unexpected body: %+v", out)
	}
}

func TestServe_BackendDown(t *testing.T) {
	handler := health.NewHandler(nil, backendDown, zap.NewNop())

	rec, out := serve(t, handler)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if out.Status != "error" || out.Backend != "unreachable" {
		t.Errorf("unexpected body: %+v", out)
	}
	if out.Message != "Backend unavailable" {
		t.Errorf("message: got %q", out.Message)
	}
	if out.Database != "disabled" {
		t.Errorf("database: got %q, want disabled", out.Database)
	}
}

func TestServe_NoDependencies(t *testing.T) {
	rec, out := serve(t, health.NewHandler(nil, nil, zap.NewNop()))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if out.Status != "ok" {
		t.Errorf("status: got %q", out.Status)
	}
}
