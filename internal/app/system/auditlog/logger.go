// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/domain/models"
	"go.uber.org/zap"
)

// Destination settings for Config fields.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in and sign-out events.
	Auth string
	// Admin controls logging for actions on backend resources.
	Admin string
}

// ValidSetting reports whether s is one of all, db, log or off.
func ValidSetting(s string) bool {
	switch strings.ToLower(s) {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// Store is where events are persisted.
type Store interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to the store and to zap.
type Logger struct {
	store  Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil, in which case only
// zap output happens.
func New(store Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Resource != "" {
		fields = append(fields, zap.String("resource", event.Resource))
	}
	if len(event.RecordIDs) > 0 {
		fields = append(fields, zap.Int64s("record_ids", event.RecordIDs))
	}
	if event.Count > 0 {
		fields = append(fields, zap.Int("count", event.Count))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers under test can skip auditing.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	setting = strings.ToLower(setting)
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		UserEmail: email,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// LoginFailed logs a rejected sign-in.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		UserEmail:     email,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
	})
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		UserEmail: email,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Resource Events ---

// Action describes one action on a resource.
type Action struct {
	EventType string
	Resource  string
	IDs       []int64
	Count     int
	Details   map[string]string
	Err       error
}

// Record logs act performed by u. A non-nil act.Err marks the event failed.
func (l *Logger) Record(ctx context.Context, r *http.Request, u *auth.SessionUser, act Action) {
	if l == nil {
		return
	}
	ev := audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: act.EventType,
		Resource:  act.Resource,
		RecordIDs: act.IDs,
		Count:     act.Count,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   act.Err == nil,
		Details:   act.Details,
	}
	if u != nil {
		ev.UserID = u.ID
		ev.UserEmail = u.Email
	}
	if act.Err != nil {
		ev.FailureReason = act.Err.Error()
	}
	l.Log(ctx, ev)
}

// Deleted logs a single-record delete.
func (l *Logger) Deleted(ctx context.Context, r *http.Request, u *auth.SessionUser, resource string, id int64, err error) {
	l.Record(ctx, r, u, Action{EventType: audit.EventRecordDeleted, Resource: resource, IDs: []int64{id}, Err: err})
}

// StatusChanged logs a status toggle.
func (l *Logger) StatusChanged(ctx context.Context, r *http.Request, u *auth.SessionUser, resource string, id int64, status string, err error) {
	l.Record(ctx, r, u, Action{
		EventType: audit.EventStatusChanged,
		Resource:  resource,
		IDs:       []int64{id},
		Details:   map[string]string{"status": status},
		Err:       err,
	})
}

// Bulk logs a bulk activate or deactivate.
func (l *Logger) Bulk(ctx context.Context, r *http.Request, u *auth.SessionUser, resource string, activate bool, ids []int64, err error) {
	ev := audit.EventBulkDeactivated
	if activate {
		ev = audit.EventBulkActivated
	}
	l.Record(ctx, r, u, Action{EventType: ev, Resource: resource, IDs: ids, Count: len(ids), Err: err})
}

// Imported logs a file import and its backend summary.
func (l *Logger) Imported(ctx context.Context, r *http.Request, u *auth.SessionUser, resource, filename string, res models.ImportResult, err error) {
	l.Record(ctx, r, u, Action{
		EventType: audit.EventImported,
		Resource:  resource,
		Count:     res.ImportedCount,
		Details: map[string]string{
			"filename": filename,
			"skipped":  strconv.Itoa(res.SkippedCount),
			"warnings": strconv.Itoa(len(res.Warnings)),
		},
		Err: err,
	})
}

// Exported logs a download.
func (l *Logger) Exported(ctx context.Context, r *http.Request, u *auth.SessionUser, resource, format, scope string, rows int, err error) {
	l.Record(ctx, r, u, Action{
		EventType: audit.EventExported,
		Resource:  resource,
		Count:     rows,
		Details:   map[string]string{"format": format, "scope": scope},
		Err:       err,
	})
}

// Printed logs a print flow.
func (l *Logger) Printed(ctx context.Context, r *http.Request, u *auth.SessionUser, resource string, rows int, err error) {
	l.Record(ctx, r, u, Action{EventType: audit.EventPrinted, Resource: resource, Count: rows, Err: err})
}

// Saved logs a create, update or assign submission.
func (l *Logger) Saved(ctx context.Context, r *http.Request, u *auth.SessionUser, eventType, resource string, id int64, err error) {
	var ids []int64
	if id > 0 {
		ids = []int64{id}
	}
	l.Record(ctx, r, u, Action{EventType: eventType, Resource: resource, IDs: ids, Err: err})
}
