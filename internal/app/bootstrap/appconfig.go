// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level and request body limits. AppConfig is everything specific
// to CareHub: where the REST backend lives, how sessions are kept, and
// where audit events go.
type AppConfig struct {
	// REST backend
	BackendURL     string        // base URL, e.g. http://localhost:8000
	BackendTimeout time.Duration // per-request HTTP timeout
	BackendRate    int           // client-side requests per second; 0 disables limiting
	BackendBurst   int

	// MongoDB holds the audit log. A blank URI keeps audit events in the log only.
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management
	SessionKey           string        // signing key (must be strong in production)
	SessionEncryptionKey string        // 16, 24 or 32 bytes; generated per process when blank
	SessionName          string        // cookie name (default: carehub-session)
	SessionDomain        string        // cookie domain (blank means current host)
	SessionDir           string        // server-side session files (blank means os temp dir)
	SessionMaxAge        time.Duration // cookie lifetime

	// CSRF protection. 32 bytes; generated per process when blank.
	CSRFKey string

	// Audit logging: all, db, log or off
	AuditLogAuth  string
	AuditLogAdmin string

	// List controllers
	ControllerIdleTTL time.Duration // idle time before a session's controllers are dropped
	SweepInterval     time.Duration

	// Import/export
	ImportMaxBytes int64
	ExportAllLimit int
}
