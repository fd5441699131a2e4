package logout_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/carehub/internal/app/features/logout"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/testutil"
	"go.uber.org/zap"
)

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(auth.Config{
		Key:    "test-session-key-must-be-32-chars-long",
		Name:   "test-session",
		Dir:    t.TempDir(),
		MaxAge: 24 * time.Hour,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func TestServeLogout_RedirectsToLogin(t *testing.T) {
	handler := logout.NewHandler(newSessionManager(t), nil, nil, nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/login" {
		t.Errorf("Location: got %q, want %q", location, "/login")
	}
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	handler := logout.NewHandler(newSessionManager(t), nil, nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, httptest.NewRequest("POST", "/logout", nil))

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("cookie MaxAge: got %d, want a deleting value", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestServeLogout_HTMX_ReturnsHXRedirect(t *testing.T) {
	handler := logout.NewHandler(newSessionManager(t), nil, nil, nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if hx := rec.Header().Get("HX-Redirect"); hx != "/login" {
		t.Errorf("HX-Redirect: got %q, want %q", hx, "/login")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for HTMX, got %d", http.StatusOK, rec.Code)
	}
}

func TestServeLogout_RevokesTokenAndReleasesControllers(t *testing.T) {
	var calls atomic.Int32
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/logout" {
			calls.Add(1)
			gotAuth.Store(r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := backend.New(backend.Config{BaseURL: srv.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	user := testutil.AdminUser()
	reg := listctl.NewRegistry()
	for _, def := range catalog.Defaults()[:2] {
		d := def
		reg.Get(user.SessionID, &d)
	}

	handler := logout.NewHandler(newSessionManager(t), client, reg, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, testutil.NewAuthenticatedRequest("POST", "/logout", user))

	if calls.Load() != 1 {
		t.Errorf("backend logout calls: got %d, want 1", calls.Load())
	}
	if got, _ := gotAuth.Load().(string); got != "Bearer "+user.Token {
		t.Errorf("Authorization: got %q", got)
	}
	if reg.Len() != 0 {
		t.Errorf("controllers left after logout: %d", reg.Len())
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
}
