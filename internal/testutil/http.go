package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WithChiURLParam adds a chi URL parameter to the request context. Repeated
// calls accumulate parameters on the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID          string
	Name        string
	Email       string
	Token       string
	Permissions []string
	SessionID   string
}

// AdminUser holds every permission.
func AdminUser() TestUser {
	return TestUser{
		ID:          "1",
		Name:        "Test Admin",
		Email:       "admin@test.com",
		Token:       "admin-token",
		Permissions: []string{auth.Wildcard},
		SessionID:   uuid.NewString(),
	}
}

// ViewerUser may only view the given resources.
func ViewerUser(resources ...string) TestUser {
	perms := make([]string, len(resources))
	for i, r := range resources {
		perms[i] = r + ".view"
	}
	return TestUser{
		ID:          "2",
		Name:        "Test Viewer",
		Email:       "viewer@test.com",
		Token:       "viewer-token",
		Permissions: perms,
		SessionID:   uuid.NewString(),
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Token:       user.Token,
		Permissions: user.Permissions,
		SessionID:   user.SessionID,
	})
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
