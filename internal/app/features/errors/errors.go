// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the basic view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Message string
}

// Handler is the errors feature handler.
// No backend needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "You don't have permission to view this page.", "/dashboard")
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	RenderUnauthorized(w, r, "/login")
}

// NotFound is mounted as the router's 404 handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusNotFound, "Not found", "The page you asked for does not exist.", "/dashboard")
}

func render(w http.ResponseWriter, r *http.Request, status int, title, msg, backURL string) {
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, backURL),
		Message: msg,
	}
	if backURL != "" {
		data.BackURL = backURL
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Retarget", "#notice")
		w.Header().Set("HX-Reswap", "outerHTML")
		w.WriteHeader(status)
		templates.RenderSnippet(w, "error_alert", data)
		return
	}
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}
