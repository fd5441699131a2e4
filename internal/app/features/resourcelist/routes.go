// internal/app/features/resourcelist/routes.go
package resourcelist

import (
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/go-chi/chi/v5"
)

// Routes mounts every resource under /{resource}. Each route requires
// "<resource>.<action>" for its action.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	view := sm.RequirePermission(h.perm(catalog.ActionView))
	create := sm.RequirePermission(h.perm(catalog.ActionCreate))
	edit := sm.RequirePermission(h.perm(catalog.ActionEdit))
	del := sm.RequirePermission(h.perm(catalog.ActionDelete))
	status := sm.RequirePermission(h.perm(catalog.ActionStatus))
	exp := sm.RequirePermission(h.perm(catalog.ActionExport))
	imp := sm.RequirePermission(h.perm(catalog.ActionImport))
	prn := sm.RequirePermission(h.perm(catalog.ActionPrint))

	r.Route("/{resource}", func(rr chi.Router) {
		rr.With(view).Get("/", h.ServeList)
		rr.With(view).Post("/select", h.HandleSelect)
		rr.With(view).Post("/select/page", h.HandleSelectPage)
		rr.With(view).Post("/select/clear", h.HandleSelectClear)
		rr.With(view).Post("/close", h.HandleCloseModal)
		rr.With(view).Get("/{id}/view", h.serveModal(listctl.ModeView))

		rr.With(create).Get("/new", h.ServeNew)
		rr.With(create).Post("/", h.HandleCreate)

		rr.With(edit).Get("/{id}/edit", h.serveModal(listctl.ModeEdit))
		rr.With(edit).Get("/{id}/assign", h.serveModal(listctl.ModeAssign))
		rr.With(edit).Post("/{id}", h.HandleUpdate)

		rr.With(del).Get("/{id}/delete", h.ServeDeleteConfirm)
		rr.With(del).Post("/{id}/delete", h.HandleDelete)

		rr.With(status).Post("/{id}/status", h.HandleStatus)
		rr.With(status).Post("/bulk/{action}", h.HandleBulk)

		rr.With(exp).Get("/export", h.HandleExport)

		rr.With(imp).Post("/import", h.HandleImport)
		rr.With(imp).Get("/import/template", h.HandleTemplate)

		rr.With(prn).Get("/print", h.ServePrint)
	})
	return r
}
