// internal/app/features/heartbeat/handler.go
package heartbeat

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Toucher keeps a session's list controllers from going idle.
type Toucher interface {
	Touch(session string) int
}

// Handler handles heartbeat requests from open pages.
type Handler struct {
	Registry Toucher
	Log      *zap.Logger
}

// NewHandler creates a new heartbeat handler.
func NewHandler(reg Toucher, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		Log:      logger,
	}
}

// heartbeatRequest is the optional JSON body for the heartbeat endpoint.
type heartbeatRequest struct {
	Page string `json:"page"`
}

// ServeHeartbeat handles POST /heartbeat. It marks the caller's list
// controllers as used so the idle sweep leaves an open page alone.
// Failures are silent; the page keeps working either way.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok || u.SessionID == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req heartbeatRequest
	if r.Body != nil && r.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(r.Body).Decode(&req) // page is optional
	}

	n := h.Registry.Touch(u.SessionID)
	h.Log.Debug("heartbeat",
		zap.String("user_id", u.ID),
		zap.String("page", req.Page),
		zap.Int("controllers", n))

	w.WriteHeader(http.StatusOK)
}
