// internal/app/features/resourcelist/list.go
package resourcelist

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// listTarget is the element id that list partials replace.
const listTarget = "list-table"

// sortable accepts column keys of def plus the default sort key.
func sortable(def catalog.Definition) func(string) bool {
	return func(key string) bool { return listctl.Sortable(&def, key) }
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/{resource}                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList applies one query operation and renders the list. The "op"
// parameter names the operation; without it the URL's query parameters
// are applied as a whole, or the committed query is refreshed.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list "+sc.Def.Name)
	defer cancel()

	err := h.applyOp(ctx, sc, r)
	if errors.Is(err, listctl.ErrSuperseded) {
		// A newer request owns the table; leave the page alone.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil && h.sessionExpired(w, r, err) {
		return
	}

	var notices []auth.Flash
	if err != nil {
		h.Log.Warn("list fetch failed",
			zap.Error(err),
			zap.String("resource", sc.Def.Name),
			zap.String("op", query.Get(r, "op")))
		notices = append(notices, auth.Flash{
			Kind:    auth.FlashError,
			Message: backend.UserMessage(err, "Could not load "+sc.Def.Title+"."),
		})
	}
	h.renderList(w, r, sc, nil, notices...)
}

func (h *Handler) applyOp(ctx context.Context, sc *scope, r *http.Request) error {
	v := r.URL.Query()
	switch query.Get(r, "op") {
	case "search":
		return sc.Ctl.Search(ctx, sc.API, v.Get("search"))
	case "sort":
		return sc.Ctl.Sort(ctx, sc.API, query.Get(r, "column"))
	case "page":
		n, _ := strconv.Atoi(query.Get(r, "page"))
		return sc.Ctl.GoTo(ctx, sc.API, n)
	case "per_page":
		n, _ := strconv.Atoi(query.Get(r, "per_page"))
		return sc.Ctl.SetPerPage(ctx, sc.API, n)
	case "refresh":
		return sc.Ctl.Refresh(ctx, sc.API)
	}
	for _, k := range []string{"page", "per_page", "search", "sort_by", "sort_dir"} {
		if v.Has(k) {
			return sc.Ctl.Apply(ctx, sc.API, listctl.ParseQuery(v, sortable(sc.Def)))
		}
	}
	return sc.Ctl.Refresh(ctx, sc.API)
}

// renderList writes the list. HTMX requests get the table partial with
// notices inline; full loads get the page with queued flashes. md, when
// set, renders the page with that form open.
func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, sc *scope, md *modalData, notices ...auth.Flash) {
	snap := sc.Ctl.Snapshot()
	base := viewdata.NewBaseVM(r, sc.Def.Title, "/dashboard")

	if isHTMX(r) {
		data := h.listData(base, sc, snap)
		data.Partial = true
		data.Notices = notices
		templates.RenderSnippet(w, "resourcelist_table", data)
		return
	}

	base = base.WithFlashes(w, r, h.SessionMgr)
	base.Flashes = append(base.Flashes, notices...)
	data := h.listData(base, sc, snap)
	data.Modal = md
	templates.Render(w, r, "resourcelist_page", data)
}

// finish ends a mutating request. HTMX requests get the refreshed table
// (retargeted, since forms may post from the modal); others get the
// notices as flashes and a redirect back to the list.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, sc *scope, closeModal bool, notices ...auth.Flash) {
	if isHTMX(r) {
		snap := sc.Ctl.Snapshot()
		data := h.listData(viewdata.NewBaseVM(r, sc.Def.Title, "/dashboard"), sc, snap)
		data.Partial = true
		data.Notices = notices
		data.CloseModal = closeModal
		w.Header().Set("HX-Retarget", "#"+listTarget)
		w.Header().Set("HX-Reswap", "innerHTML")
		templates.RenderSnippet(w, "resourcelist_table", data)
		return
	}
	if h.SessionMgr != nil {
		for _, n := range notices {
			h.SessionMgr.AddFlash(w, r, n.Kind, n.Message)
		}
	}
	http.Redirect(w, r, sc.Base, http.StatusSeeOther)
}

// refresh re-fetches after a mutation. A failure leaves the previous
// page in place and yields a warning notice.
func (h *Handler) refresh(ctx context.Context, sc *scope) []auth.Flash {
	err := sc.Ctl.Refresh(ctx, sc.API)
	if err == nil || errors.Is(err, listctl.ErrSuperseded) {
		return nil
	}
	h.Log.Warn("list refresh failed", zap.Error(err), zap.String("resource", sc.Def.Name))
	return []auth.Flash{{Kind: auth.FlashWarning, Message: "The list could not be refreshed."}}
}

// ensureLoaded fetches the committed query once so full-page renders
// never show an unloaded table.
func (h *Handler) ensureLoaded(ctx context.Context, sc *scope) error {
	if sc.Ctl.Snapshot().Loaded {
		return nil
	}
	return sc.Ctl.Refresh(ctx, sc.API)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Selection                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSelect toggles one row.
// POST /admin/{resource}/select
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.ErrLog.LogBadRequest(w, r, "bad select id", err, "Invalid record id.", sc.Base)
		return
	}
	sc.Ctl.Toggle(id)
	h.finish(w, r, sc, false)
}

// HandleSelectPage selects every row of the page, or clears them when all
// were selected.
// POST /admin/{resource}/select/page
func (h *Handler) HandleSelectPage(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	sc.Ctl.TogglePage()
	h.finish(w, r, sc, false)
}

// HandleSelectClear empties the selection.
// POST /admin/{resource}/select/clear
func (h *Handler) HandleSelectClear(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	sc.Ctl.ClearSelection()
	h.finish(w, r, sc, false)
}
