// internal/app/features/resourcelist/exportfile.go
package resourcelist

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/export"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/metrics"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// fullParams is the committed query without paging, for "all rows" fetches.
func fullParams(q listctl.Query) url.Values {
	v := q.Values()
	v.Del("page")
	v.Del("per_page")
	return v
}

// HandleExport downloads the page, the selection or every row as CSV,
// XLSX or PDF. An empty scope produces a notice and no file.
// GET /admin/{resource}/export?format=&scope=
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(query.Get(r, "format"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "unknown export format", err, "Unknown export format.", sc.Base)
		return
	}
	scopeKind := export.ParseScope(query.Get(r, "scope"))
	snap := sc.Ctl.Snapshot()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "export "+sc.Def.Name)
	defer cancel()

	var rows []models.Record
	switch scopeKind {
	case export.ScopeSelected:
		if len(snap.Selected) == 0 {
			h.Metrics.Export(sc.Def.Name, string(format), string(scopeKind), metrics.OutcomeRejected)
			h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: listctl.EmptySelectionMessage})
			return
		}
		rows = sc.Ctl.SelectedRows()
	case export.ScopeAll:
		rows, err = sc.API.ListAll(ctx, sc.Def.Plural, fullParams(snap.Query), h.ExportAllLimit)
		if err != nil {
			if h.sessionExpired(w, r, err) {
				return
			}
			h.Log.Warn("export fetch failed", zap.Error(err), zap.String("resource", sc.Def.Name))
			h.Metrics.Export(sc.Def.Name, string(format), string(scopeKind), metrics.OutcomeFailed)
			h.AuditLog.Exported(ctx, r, sc.User, sc.Def.Name, string(format), string(scopeKind), 0, err)
			h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Export failed.")})
			return
		}
	default:
		rows = sc.Ctl.PageRows()
	}

	doc, err := export.Build(export.Request{
		Def:    sc.Def,
		Format: format,
		Scope:  scopeKind,
		Page:   snap.Query.Page,
		Rows:   rows,
	})
	if errors.Is(err, export.ErrEmptyScope) {
		h.Metrics.Export(sc.Def.Name, string(format), string(scopeKind), metrics.OutcomeRejected)
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: "There are no records to export."})
		return
	}
	h.AuditLog.Exported(ctx, r, sc.User, sc.Def.Name, string(format), string(scopeKind), len(rows), err)
	if err != nil {
		h.Metrics.Export(sc.Def.Name, string(format), string(scopeKind), metrics.OutcomeFailed)
		h.ErrLog.LogServerError(w, r, "export build failed", err, "Export failed.", sc.Base)
		return
	}
	h.Metrics.Export(sc.Def.Name, string(format), string(scopeKind), metrics.OutcomeOK)

	if err := (export.ResponseSink{W: w}).Save(doc); err != nil {
		h.Log.Warn("export write failed", zap.Error(err), zap.String("file", doc.Filename))
	}
}
