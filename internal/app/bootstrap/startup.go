// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/carehub/internal/app/resources"
	"github.com/dalemusser/carehub/internal/app/system/auditlog"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/importer"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/metrics"
	"github.com/dalemusser/carehub/internal/app/system/printer"
	"github.com/dalemusser/carehub/internal/app/system/ratelimit"
	"github.com/dalemusser/carehub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the process-wide objects built in Startup and used by
// BuildHandler and Shutdown. WAFFLE hands each hook its config by value,
// so they live here.
type services struct {
	Catalog  *catalog.Catalog
	Backend  *backend.Client
	Sessions *auth.SessionManager
	Registry *listctl.Registry
	Imports  *importer.Engine
	Prints   *printer.Engine
	Limiter  *ratelimit.LoginLimiter
	Metrics  *metrics.Metrics
	AuditLog *auditlog.Logger
	Sweeper  *workers.ControllerSweep
}

var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	s, err := newServices(coreCfg, appCfg, deps, logger)
	if err != nil {
		return err
	}
	s.Sweeper.Start()
	svc = s
	return nil
}

func newServices(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	client, err := backend.New(backend.Config{
		BaseURL:   appCfg.BackendURL,
		Timeout:   appCfg.BackendTimeout,
		RateLimit: float64(appCfg.BackendRate),
		Burst:     appCfg.BackendBurst,
	}, logger.Named("backend"))
	if err != nil {
		logger.Error("backend client init failed", zap.Error(err))
		return nil, err
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg != nil && coreCfg.Env == "prod"
	sm, err := auth.NewSessionManager(auth.Config{
		Key:           appCfg.SessionKey,
		EncryptionKey: appCfg.SessionEncryptionKey,
		Name:          appCfg.SessionName,
		Domain:        appCfg.SessionDomain,
		Dir:           appCfg.SessionDir,
		MaxAge:        appCfg.SessionMaxAge,
		Secure:        secure,
	}, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	reg := listctl.NewRegistry()
	m := metrics.New(reg.Len)
	client.SetObserver(m)

	// A nil *audit.Store must not become a non-nil interface.
	var store auditlog.Store
	if deps.Audit != nil {
		store = deps.Audit
	}
	audit := auditlog.New(store, logger.Named("audit"), auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	limiter := ratelimit.NewLoginLimiter()

	return &services{
		Catalog:  catalog.Default(),
		Backend:  client,
		Sessions: sm,
		Registry: reg,
		Imports:  importer.NewEngine(appCfg.ImportMaxBytes),
		Prints:   printer.NewEngine(),
		Limiter:  limiter,
		Metrics:  m,
		AuditLog: audit,
		Sweeper: workers.NewControllerSweep(sweepAll{reg, limiter}, logger,
			appCfg.SweepInterval, appCfg.ControllerIdleTTL),
	}, nil
}

// sweepAll fans one sweep out to every idle-state holder.
type sweepAll []workers.Sweeper

func (s sweepAll) Sweep(ttl time.Duration) int {
	n := 0
	for _, sw := range s {
		n += sw.Sweep(ttl)
	}
	return n
}
