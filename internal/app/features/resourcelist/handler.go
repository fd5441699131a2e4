// internal/app/features/resourcelist/handler.go
package resourcelist

import (
	"errors"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/carehub/internal/app/features/errors"
	"github.com/dalemusser/carehub/internal/app/system/auditlog"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/importer"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/metrics"
	"github.com/dalemusser/carehub/internal/app/system/printer"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultExportAllLimit is the per_page sent when exporting every row.
const DefaultExportAllLimit = 10000

// Handler serves every resource in the catalog from one set of routes.
// Per-session list state lives in the Registry; the backend is called
// with the signed-in user's token.
type Handler struct {
	Catalog    *catalog.Catalog
	Backend    *backend.Client
	Registry   *listctl.Registry
	Imports    *importer.Engine
	Prints     *printer.Engine
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	// ExportAllLimit is the per_page used for "all rows" exports.
	ExportAllLimit int
	// Prefix is where Routes is mounted, e.g. "/admin".
	Prefix string
}

func NewHandler(
	cat *catalog.Catalog,
	client *backend.Client,
	reg *listctl.Registry,
	imports *importer.Engine,
	prints *printer.Engine,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	errLog *uierrors.ErrorLogger,
	exportAllLimit int,
	logger *zap.Logger,
) *Handler {
	if exportAllLimit <= 0 {
		exportAllLimit = DefaultExportAllLimit
	}
	return &Handler{
		Catalog:        cat,
		Backend:        client,
		Registry:       reg,
		Imports:        imports,
		Prints:         prints,
		SessionMgr:     sessionMgr,
		AuditLog:       audit,
		Metrics:        m,
		ErrLog:         errLog,
		Log:            logger,
		ExportAllLimit: exportAllLimit,
		Prefix:         "/admin",
	}
}

// scope is everything a request needs about its resource and caller.
type scope struct {
	Def  catalog.Definition
	User *auth.SessionUser
	Ctl  *listctl.Controller
	API  *backend.API
	Base string // list URL, e.g. /admin/zones
}

// key identifies the session+resource pair for the import and print engines.
func (s *scope) key() string { return s.User.SessionID + "/" + s.Def.Name }

// resolve loads the resource definition, the caller and the caller's
// controller. It renders the error page itself and returns false when the
// request cannot proceed.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*scope, bool) {
	def, ok := h.Catalog.Get(chi.URLParam(r, "resource"))
	if !ok {
		uierrors.RenderNotFound(w, r, "That resource does not exist.", "/dashboard")
		return nil, false
	}
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "")
		return nil, false
	}
	sid := u.SessionID
	if sid == "" {
		sid = u.ID
	}
	ctl, created := h.Registry.Get(sid, &def)
	if created {
		h.Log.Debug("list controller created",
			zap.String("resource", def.Name),
			zap.String("user_id", u.ID))
	}
	return &scope{
		Def:  def,
		User: u,
		Ctl:  ctl,
		API:  h.Backend.As(u.Token),
		Base: h.Prefix + "/" + def.Plural,
	}, true
}

// perm derives the permission for action from the {resource} URL param.
// Unknown resources pass so the handler can answer 404.
func (h *Handler) perm(action string) func(*http.Request) string {
	return func(r *http.Request) string {
		def, ok := h.Catalog.Get(chi.URLParam(r, "resource"))
		if !ok {
			return ""
		}
		return def.Permission(action)
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sessionExpired handles a 401 from the backend: the stored token is no
// longer valid, so the session ends and the user signs in again.
func (h *Handler) sessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	if u, ok := auth.CurrentUser(r); ok {
		h.Registry.Forget(u.SessionID)
	}
	if h.SessionMgr != nil {
		if serr := h.SessionMgr.SignOut(w, r); serr != nil {
			h.Log.Warn("sign out after expired token failed", zap.Error(serr))
		}
	}
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return true
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

func notFound(w http.ResponseWriter, r *http.Request, sc *scope) {
	uierrors.RenderNotFound(w, r, "That record is not on the current page.", sc.Base)
}
