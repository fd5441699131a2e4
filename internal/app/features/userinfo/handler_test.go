package userinfo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/carehub/internal/app/features/userinfo"
	"github.com/dalemusser/carehub/internal/testutil"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestServeUserInfo_Unauthenticated(t *testing.T) {
	h := userinfo.NewHandler()

	rec := httptest.NewRecorder()
	h.ServeUserInfo(rec, httptest.NewRequest(http.MethodGet, "/api/user", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := decode(t, rec)
	if body["isAuthenticated"] != false {
		t.Errorf("isAuthenticated: got %v, want false", body["isAuthenticated"])
	}
	if perms, ok := body["permissions"].([]any); !ok || len(perms) != 0 {
		t.Errorf("permissions: got %v, want empty list", body["permissions"])
	}
}

func TestServeUserInfo_Authenticated(t *testing.T) {
	h := userinfo.NewHandler()
	user := testutil.ViewerUser("zone")

	rec := httptest.NewRecorder()
	h.ServeUserInfo(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/api/user", user))

	body := decode(t, rec)
	if body["isAuthenticated"] != true {
		t.Errorf("isAuthenticated: got %v, want true", body["isAuthenticated"])
	}
	if body["email"] != user.Email {
		t.Errorf("email: got %v, want %q", body["email"], user.Email)
	}
	if _, leaked := body["token"]; leaked {
		t.Error("token must not be exposed")
	}
	perms, _ := body["permissions"].([]any)
	if len(perms) != len(user.Permissions) {
		t.Errorf("permissions: got %v, want %v", perms, user.Permissions)
	}
}
