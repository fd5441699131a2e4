// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// recentLimit is how many of the user's own audit events are shown.
const recentLimit = 10

// ActivityQuerier reads a user's audit events.
type ActivityQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

type Handler struct {
	Audit      ActivityQuerier // nil hides recent activity
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(store ActivityQuerier, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:      store,
		SessionMgr: sm,
		Log:        logger,
	}
}

type activity struct {
	When      time.Time
	EventType string
	Resource  string
	Count     int
	Success   bool
}

type dashboardData struct {
	viewdata.BaseVM
	Recent []activity
}

func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := dashboardData{
		BaseVM: viewdata.NewBaseVM(r, "Dashboard", "/dashboard").WithFlashes(w, r, h.SessionMgr),
		Recent: h.recent(r.Context(), u.ID),
	}

	h.Log.Debug("dashboard served", zap.String("user", u.Email), zap.Int("resources", len(data.Nav)))

	templates.Render(w, r, "dashboard", data)
}

// recent loads the user's latest audit events. A failed lookup only
// hides the panel.
func (h *Handler) recent(parent context.Context, userID string) []activity {
	if h.Audit == nil || userID == "" {
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Short(), h.Log, "dashboard activity")
	defer cancel()

	events, err := h.Audit.Query(ctx, audit.QueryFilter{UserID: userID, Limit: recentLimit})
	if err != nil {
		h.Log.Warn("failed to load recent activity", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	out := make([]activity, 0, len(events))
	for _, e := range events {
		n := e.Count
		if n == 0 {
			n = len(e.RecordIDs)
		}
		out = append(out, activity{
			When:      e.Timestamp,
			EventType: e.EventType,
			Resource:  e.Resource,
			Count:     n,
			Success:   e.Success,
		})
	}
	return out
}
