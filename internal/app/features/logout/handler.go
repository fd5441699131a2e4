// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/carehub/internal/app/system/auditlog"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Backend    *backend.Client
	Registry   *listctl.Registry
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, client *backend.Client, reg *listctl.Registry, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Backend:    client,
		Registry:   reg,
		AuditLog:   audit,
	}
}

// ServeLogout handles GET and POST /logout. The backend token is revoked
// on a best-effort basis; the local session ends either way.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		if h.Backend != nil && u.Token != "" {
			ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "logout")
			if err := h.Backend.As(u.Token).Logout(ctx); err != nil {
				h.Log.Warn("backend logout failed", zap.Error(err), zap.String("user_id", u.ID))
			}
			cancel()
		}
		if h.Registry != nil {
			n := h.Registry.Forget(u.SessionID)
			h.Log.Debug("list controllers released", zap.Int("count", n))
		}
		h.AuditLog.Logout(r.Context(), r, u.ID, u.Email)
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation.
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
