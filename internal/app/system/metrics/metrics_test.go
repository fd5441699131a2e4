package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New(nil)
	m.ObserveRequest("categories", "list", 200, 20*time.Millisecond)
	m.ObserveRequest("categories", "list", 201, time.Millisecond)
	m.ObserveRequest("categories", "delete", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.BackendRequests.WithLabelValues("categories", "list", "2xx")); got != 2 {
		t.Errorf("2xx list count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.BackendRequests.WithLabelValues("categories", "delete", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestFlowCounters(t *testing.T) {
	m := New(func() int { return 3 })
	m.Export("centers", "csv", "all", OutcomeOK)
	m.Import("centers", OutcomeRejected)
	m.Print("centers", OutcomeFailed)

	if testutil.ToFloat64(m.Exports.WithLabelValues("centers", "csv", "all", OutcomeOK)) != 1 {
		t.Error("export not counted")
	}
	if testutil.ToFloat64(m.Imports.WithLabelValues("centers", OutcomeRejected)) != 1 {
		t.Error("import not counted")
	}
	if testutil.ToFloat64(m.Prints.WithLabelValues("centers", OutcomeFailed)) != 1 {
		t.Error("print not counted")
	}
	if testutil.ToFloat64(m.Controllers) != 3 {
		t.Error("controller gauge not reporting")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("x", "list", 200, time.Millisecond)
	m.Export("x", "csv", "page", OutcomeOK)
	m.Import("x", OutcomeOK)
	m.Print("x", OutcomeOK)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/admin/{resource}/{id}/view", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/admin/zones/"+id+"/view", nil))
	}
	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/admin/{resource}/{id}/view", "204"))
	if got != 2 {
		t.Errorf("count = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "carehub_http_requests_total") {
		t.Error("metrics output missing http counter")
	}
}
