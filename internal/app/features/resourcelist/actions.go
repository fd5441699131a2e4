// internal/app/features/resourcelist/actions.go
package resourcelist

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/export"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type confirmData struct {
	viewdata.BaseVM
	Title  string
	Base   string
	Action string
	ID     int64
	Label  string
}

/*─────────────────────────────────────────────────────────────────────────────*
| Delete                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDeleteConfirm asks before deleting.
// GET /admin/{resource}/{id}/delete
func (h *Handler) ServeDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "bad delete id", nil, "Invalid record id.", sc.Base)
		return
	}
	label := "#" + strconv.FormatInt(id, 10)
	if rec, found := sc.Ctl.Record(id); found {
		if name := export.Flatten(rec["name"]); name != "" {
			label = name
		}
	}
	data := confirmData{
		BaseVM: viewdata.NewBaseVM(r, "Delete "+sc.Def.Name, sc.Base),
		Title:  "Delete " + sc.Def.Name,
		Base:   sc.Base,
		Action: sc.Base + "/" + strconv.FormatInt(id, 10) + "/delete",
		ID:     id,
		Label:  label,
	}
	if isHTMX(r) {
		templates.RenderSnippet(w, "resourcelist_confirm", data)
		return
	}
	templates.Render(w, r, "resourcelist_confirm_page", data)
}

// HandleDelete deletes after confirmation. Anything but confirm=yes
// closes the dialog without calling the backend.
// POST /admin/{resource}/{id}/delete
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "bad delete id", nil, "Invalid record id.", sc.Base)
		return
	}
	if r.FormValue("confirm") != "yes" {
		h.finish(w, r, sc, true)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete "+sc.Def.Name)
	defer cancel()

	msg, err := sc.API.Delete(ctx, sc.Def.Plural, id)
	h.AuditLog.Deleted(ctx, r, sc.User, sc.Def.Name, id, err)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.Log.Warn("delete failed", zap.Error(err), zap.String("resource", sc.Def.Name), zap.Int64("id", id))
		h.finish(w, r, sc, true, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Delete failed.")})
		return
	}
	if msg == "" {
		msg = sc.Def.Title + " record deleted."
	}
	notices := append([]auth.Flash{{Kind: auth.FlashSuccess, Message: msg}}, h.refresh(ctx, sc)...)
	h.finish(w, r, sc, true, notices...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Status                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleStatus sets or flips a record's status. An explicit "status"
// form value wins; otherwise the loaded row's status is inverted.
// POST /admin/{resource}/{id}/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !sc.Def.Toggle {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: sc.Def.Title + " do not support status changes."})
		return
	}
	id, ok := idParam(r)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "bad status id", nil, "Invalid record id.", sc.Base)
		return
	}

	status := r.FormValue("status")
	if status == "" {
		rec, found := sc.Ctl.Record(id)
		if !found {
			h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: "Record not found on this page."})
			return
		}
		status = models.StatusActive
		if rec.IsActive() {
			status = models.StatusInactive
		}
	}
	if status != models.StatusActive && status != models.StatusInactive {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: "Unknown status."})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "status "+sc.Def.Name)
	defer cancel()

	msg, err := sc.API.SetStatus(ctx, sc.Def.Plural, id, status)
	h.AuditLog.StatusChanged(ctx, r, sc.User, sc.Def.Name, id, status, err)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.Log.Warn("status change failed", zap.Error(err), zap.String("resource", sc.Def.Name), zap.Int64("id", id))
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Status change failed.")})
		return
	}
	if msg == "" {
		msg = "Status set to " + status + "."
	}
	notices := append([]auth.Flash{{Kind: auth.FlashSuccess, Message: msg}}, h.refresh(ctx, sc)...)
	h.finish(w, r, sc, false, notices...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Bulk                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleBulk activates or deactivates every selected id. An empty
// selection is rejected before any request is sent.
// POST /admin/{resource}/bulk/{action}
func (h *Handler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	action := chi.URLParam(r, "action")
	if action != backend.BulkActivate && action != backend.BulkDeactivate {
		h.ErrLog.LogBadRequest(w, r, "unknown bulk action", nil, "Unknown bulk action.", sc.Base)
		return
	}
	if !sc.Def.Bulk {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: sc.Def.Title + " do not support bulk actions."})
		return
	}

	ids, err := sc.Ctl.Selected()
	if errors.Is(err, listctl.ErrEmptySelection) {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: listctl.EmptySelectionMessage})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "bulk "+sc.Def.Name)
	defer cancel()

	msg, err := sc.API.Bulk(ctx, sc.Def.Plural, sc.Def.IDsKey(), action, ids)
	h.AuditLog.Bulk(ctx, r, sc.User, sc.Def.Name, action == backend.BulkActivate, ids, err)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.Log.Warn("bulk action failed",
			zap.Error(err),
			zap.String("resource", sc.Def.Name),
			zap.String("action", action),
			zap.Int("count", len(ids)))
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Bulk "+action+" failed.")})
		return
	}

	sc.Ctl.ClearSelection()
	if msg == "" {
		msg = strconv.Itoa(len(ids)) + " records updated."
	}
	notices := append([]auth.Flash{{Kind: auth.FlashSuccess, Message: msg}}, h.refresh(ctx, sc)...)
	h.finish(w, r, sc, false, notices...)
}
