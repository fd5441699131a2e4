package heartbeat_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/carehub/internal/app/features/heartbeat"
	"github.com/dalemusser/carehub/internal/testutil"
	"go.uber.org/zap"
)

type countingToucher struct {
	sessions []string
}

func (c *countingToucher) Touch(session string) int {
	c.sessions = append(c.sessions, session)
	return 2
}

func TestServeHeartbeat_Unauthenticated(t *testing.T) {
	reg := &countingToucher{}
	h := heartbeat.NewHandler(reg, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHeartbeat(rec, httptest.NewRequest(http.MethodPost, "/heartbeat", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if len(reg.sessions) != 0 {
		t.Errorf("touched %v without a user", reg.sessions)
	}
}

func TestServeHeartbeat_TouchesSession(t *testing.T) {
	reg := &countingToucher{}
	h := heartbeat.NewHandler(reg, zap.NewNop())
	user := testutil.AdminUser()

	req := httptest.NewRequest(http.MethodPost, "/heartbeat", strings.NewReader(`{"page":"/admin/zones"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithUser(req, user)
	rec := httptest.NewRecorder()
	h.ServeHeartbeat(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if len(reg.sessions) != 1 || reg.sessions[0] != user.SessionID {
		t.Errorf("touched %v, want [%s]", reg.sessions, user.SessionID)
	}
}

func TestServeHeartbeat_BadBodyIsIgnored(t *testing.T) {
	reg := &countingToucher{}
	h := heartbeat.NewHandler(reg, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/heartbeat", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.ServeHeartbeat(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if len(reg.sessions) != 1 {
		t.Errorf("expected one touch, got %d", len(reg.sessions))
	}
}
