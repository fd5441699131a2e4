// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	auditlogfeature "github.com/dalemusser/carehub/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/carehub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/carehub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/carehub/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/carehub/internal/app/features/heartbeat"
	homefeature "github.com/dalemusser/carehub/internal/app/features/home"
	loginfeature "github.com/dalemusser/carehub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/carehub/internal/app/features/logout"
	resourcelistfeature "github.com/dalemusser/carehub/internal/app/features/resourcelist"
	userinfofeature "github.com/dalemusser/carehub/internal/app/features/userinfo"
	"github.com/dalemusser/carehub/internal/app/system/navigation"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// adminPrefix is where the resource lists are mounted.
const adminPrefix = "/admin"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. CareHub boots the template engine, applies the
// metrics, CSRF and session middleware, and mounts the feature routers:
// login/logout, dashboard, the per-resource list screens under /admin,
// and the audit log.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("bootstrap: BuildHandler called before Startup")
	}
	s := svc

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	viewdata.Init(navigation.NewMenu(s.Catalog, adminPrefix))

	csrfMW, err := csrfMiddleware(appCfg, coreCfg.Env == "prod", logger)
	if err != nil {
		return nil, err
	}

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)
	sm := s.Sessions

	r := chi.NewRouter()
	r.Use(s.Metrics.Middleware)

	// Probes and scrapes stay outside CSRF and sessions.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, s.Backend.As(""), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", s.Metrics.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	r.Group(func(app chi.Router) {
		app.Use(csrfMW...)
		// Loads SessionUser into context if logged in.
		app.Use(sm.LoadSessionUser)

		errorsHandler := errorsfeature.NewHandler()
		app.NotFound(errorsHandler.NotFound)

		app.Get("/", homefeature.NewHandler(logger).ServeRoot)

		// Authentication
		loginHandler := loginfeature.NewHandler(sm, s.Backend, errLog, s.AuditLog, s.Limiter, logger)
		app.Mount("/login", loginfeature.Routes(loginHandler))

		logoutHandler := logoutfeature.NewHandler(sm, s.Backend, s.Registry, s.AuditLog, logger)
		app.Mount("/logout", logoutfeature.Routes(logoutHandler, sm))

		userinfofeature.MountRoutes(app, userinfofeature.NewHandler())
		app.Mount("/heartbeat", heartbeatfeature.Routes(heartbeatfeature.NewHandler(s.Registry, logger), sm))

		// Error pages
		app.Get("/forbidden", errorsHandler.Forbidden)
		app.Get("/unauthorized", errorsHandler.Unauthorized)

		dashboardHandler := dashboardfeature.NewHandler(activityStore(deps), sm, logger)
		app.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sm))

		// Resource list screens
		listHandler := resourcelistfeature.NewHandler(s.Catalog, s.Backend, s.Registry, s.Imports, s.Prints,
			sm, s.AuditLog, s.Metrics, errLog, appCfg.ExportAllLimit, logger)
		listHandler.Prefix = adminPrefix
		app.Mount(adminPrefix, resourcelistfeature.Routes(listHandler, sm))

		if deps.Audit != nil {
			auditHandler := auditlogfeature.NewHandler(deps.Audit, s.Catalog.Names(), errLog, logger)
			app.Mount("/audit", auditlogfeature.Routes(auditHandler, sm))
		}
	})

	return r, nil
}

// activityStore returns the audit store for the dashboard, or a nil
// interface when auditing to Mongo is off.
func activityStore(deps DBDeps) dashboardfeature.ActivityQuerier {
	if deps.Audit == nil {
		return nil
	}
	return deps.Audit
}

// csrfMiddleware protects every state-changing form and HTMX request.
// Outside production requests are marked plaintext so the Origin check
// accepts http:// pages.
func csrfMiddleware(appCfg AppConfig, secure bool, logger *zap.Logger) ([]func(http.Handler) http.Handler, error) {
	key := []byte(appCfg.CSRFKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("generate csrf key")
		}
		logger.Warn("no csrf_key configured; generated one for this process")
	}

	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("carehub-csrf"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed",
				zap.String("path", r.URL.Path),
				zap.Error(csrf.FailureReason(r)))
			errorsfeature.RenderForbidden(w, r, "Your form has expired. Reload the page and try again.", "")
		})),
	)
	if secure {
		return []func(http.Handler) http.Handler{protect}, nil
	}
	plaintext := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
	return []func(http.Handler) http.Handler{plaintext, protect}, nil
}
