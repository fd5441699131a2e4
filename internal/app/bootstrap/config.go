// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/carehub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CareHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: backend_url, session_name, etc.
//   - Environment variables: CAREHUB_BACKEND_URL, CAREHUB_SESSION_NAME, etc.
//   - Command-line flags: --backend_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	// REST backend
	{Name: "backend_url", Default: "http://localhost:8000", Desc: "REST backend base URL"},
	{Name: "backend_timeout", Default: "30s", Desc: "Per-request backend timeout (e.g., 30s, 1m)"},
	{Name: "backend_rate", Default: 20, Desc: "Client-side backend request rate (req/s, 0 disables)"},
	{Name: "backend_burst", Default: 40, Desc: "Backend request burst size"},

	// Audit store
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI for the audit log (blank disables)"},
	{Name: "mongo_database", Default: "carehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 50, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 2, Desc: "MongoDB min connection pool size"},

	// Sessions
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_encryption_key", Default: "", Desc: "Session encryption key, 16/24/32 bytes (generated when blank)"},
	{Name: "session_name", Default: "carehub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_dir", Default: "", Desc: "Directory for server-side session files (blank means temp dir)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session lifetime"},

	// CSRF
	{Name: "csrf_key", Default: "", Desc: "CSRF token key, 32 bytes (generated when blank)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// List controllers
	{Name: "controller_idle_ttl", Default: "30m", Desc: "Idle time before a session's list controllers are released"},
	{Name: "sweep_interval", Default: "1m", Desc: "How often idle controllers and rate limit entries are swept"},

	// Import/export
	{Name: "import_max_bytes", Default: 10 << 20, Desc: "Largest accepted import upload in bytes"},
	{Name: "export_all_limit", Default: 10000, Desc: "per_page used to fetch all rows for export and print"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env (CAREHUB_*) >
// files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAREHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		BackendURL:     appValues.String("backend_url"),
		BackendTimeout: appValues.Duration("backend_timeout", 30*time.Second),
		BackendRate:    appValues.Int("backend_rate"),
		BackendBurst:   appValues.Int("backend_burst"),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(max(appValues.Int("mongo_max_pool_size"), 0)),
		MongoMinPoolSize: uint64(max(appValues.Int("mongo_min_pool_size"), 0)),

		SessionKey:           appValues.String("session_key"),
		SessionEncryptionKey: appValues.String("session_encryption_key"),
		SessionName:          appValues.String("session_name"),
		SessionDomain:        appValues.String("session_domain"),
		SessionDir:           appValues.String("session_dir"),
		SessionMaxAge:        appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		ControllerIdleTTL: appValues.Duration("controller_idle_ttl", 30*time.Minute),
		SweepInterval:     appValues.Duration("sweep_interval", time.Minute),

		ImportMaxBytes: int64(appValues.Int("import_max_bytes")),
		ExportAllLimit: appValues.Int("export_all_limit"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAppConfig(appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.SessionEncryptionKey == "" {
			logger.Warn("session_encryption_key is blank; sessions will not survive a restart")
		}
		if appCfg.CSRFKey == "" {
			logger.Warn("csrf_key is blank; forms opened before a restart will be rejected")
		}
	}
	return nil
}

func validateAppConfig(appCfg AppConfig) error {
	u, err := url.Parse(appCfg.BackendURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("backend_url %q must be an absolute URL", appCfg.BackendURL)
	}
	if appCfg.MongoURI != "" {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	}
	if appCfg.BackendRate < 0 || appCfg.BackendBurst < 0 {
		return errors.New("backend_rate and backend_burst must not be negative")
	}
	if appCfg.ImportMaxBytes <= 0 {
		return errors.New("import_max_bytes must be positive")
	}
	if appCfg.CSRFKey != "" && len(appCfg.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be 32 bytes, got %d", len(appCfg.CSRFKey))
	}
	for _, s := range []string{appCfg.AuditLogAuth, appCfg.AuditLogAdmin} {
		if !auditlog.ValidSetting(s) {
			return fmt.Errorf("audit log setting %q must be all, db, log or off", s)
		}
	}
	return nil
}
