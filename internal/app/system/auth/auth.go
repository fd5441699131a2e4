package auth

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "carehub-session"

	isAuthKey      = "is_authenticated"
	sessionIDKey   = "sid"
	userIDKey      = "user_id"
	userNameKey    = "user_name"
	userEmailKey   = "user_email"
	tokenKey       = "token"
	permissionsKey = "permissions"
	flashKey       = "_flash"
)

// Wildcard grants every permission.
const Wildcard = "*"

func init() {
	gob.Register(Flash{})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we keep in the session and inject into r.Context().
// Token is the backend bearer token issued at sign-in.
type SessionUser struct {
	ID          string
	Name        string
	Email       string
	Token       string
	Permissions []string
	SessionID   string
}

// Can reports whether the user holds perm. Permissions are
// "<resource>.<action>"; "*" and "<resource>.*" act as wildcards.
func (u *SessionUser) Can(perm string) bool {
	if u == nil {
		return false
	}
	perm = strings.ToLower(strings.TrimSpace(perm))
	resource, _, _ := strings.Cut(perm, ".")
	for _, p := range u.Permissions {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == Wildcard || p == perm || p == resource+".*" {
			return true
		}
	}
	return false
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context, as LoadSessionUser would.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the session store and the auth middleware.
type SessionManager struct {
	store *sessions.FilesystemStore
	name  string
	log   *zap.Logger
}

// Config holds session settings.
type Config struct {
	Key           string // signing key, >= 32 chars recommended
	EncryptionKey string // 16, 24 or 32 bytes; generated when empty
	Name          string
	Domain        string
	Dir           string // server-side session files; os.TempDir() when empty
	MaxAge        time.Duration
	Secure        bool
}

// NewSessionManager builds the store. Session values live server side so
// the bearer token and permission list never travel in the cookie.
func NewSessionManager(cfg Config, logger *zap.Logger) (*SessionManager, error) {
	if cfg.Key == "" {
		return nil, errors.New("session key is empty; provide >= 32 random chars")
	}
	if len(cfg.Key) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(cfg.Key)))
	}

	enc := []byte(cfg.EncryptionKey)
	switch len(enc) {
	case 0:
		enc = securecookie.GenerateRandomKey(32)
		if enc == nil {
			return nil, errors.New("generate session encryption key")
		}
		logger.Warn("no session encryption key configured; generated one for this process, sessions end on restart")
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("session encryption key must be 16, 24 or 32 bytes, got %d", len(enc))
	}

	store := sessions.NewFilesystemStore(cfg.Dir, []byte(cfg.Key), enc)
	store.MaxLength(0)

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	opts := &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.Options = opts

	name := cfg.Name
	if name == "" {
		name = DefaultSessionName
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", cfg.Secure),
		zap.String("domain", cfg.Domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// session returns the named session. A cookie that no longer decodes
// (rotated keys, expired file) yields a fresh session instead of an error.
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			sm.log.Debug("discarding undecodable session cookie", zap.Error(err))
		} else {
			sm.log.Warn("session load failed", zap.Error(err))
		}
		sess, _ = sm.store.New(r, sm.name)
	}
	return sess
}

// LoadSessionUser injects the user into context if they are signed in.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sm.session(r)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			perms, _ := sess.Values[permissionsKey].([]string)
			u := &SessionUser{
				ID:          getString(sess, userIDKey),
				Name:        getString(sess, userNameKey),
				Email:       getString(sess, userEmailKey),
				Token:       getString(sess, tokenKey),
				Permissions: perms,
				SessionID:   getString(sess, sessionIDKey),
			}
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		ret := url.QueryEscape(currentURI(r))

		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/login?return="+ret)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if wantsHTML(r) {
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// RequirePermission ensures the signed-in user holds the permission that
// permFor derives from the request. An empty permission passes.
// Not signed in behaves like RequireSignedIn. Missing the permission:
//   - HTMX: HX-Redirect to /forbidden
//   - HTML: 303 redirect to /forbidden
//   - API:  403 Forbidden
func (sm *SessionManager) RequirePermission(permFor func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := CurrentUser(r)
			if perm := permFor(r); perm == "" || u.Can(perm) {
				next.ServeHTTP(w, r)
				return
			}
			sm.log.Info("permission denied",
				zap.String("user_id", u.ID),
				zap.String("permission", permFor(r)),
				zap.String("path", r.URL.Path))

			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/forbidden")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if wantsHTML(r) {
				http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
	}
}

// Permission is a permFor that always asks for perm.
func Permission(perm string) func(*http.Request) string {
	return func(*http.Request) string { return perm }
}

// SignIn starts an authenticated session for u with a fresh session id,
// which it returns.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) (string, error) {
	sess := sm.session(r)
	for k := range sess.Values {
		if k != flashKey {
			delete(sess.Values, k)
		}
	}
	sid := uuid.NewString()
	sess.Values[isAuthKey] = true
	sess.Values[sessionIDKey] = sid
	sess.Values[userIDKey] = u.ID
	sess.Values[userNameKey] = u.Name
	sess.Values[userEmailKey] = u.Email
	sess.Values[tokenKey] = u.Token
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	sess.Values[permissionsKey] = perms
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return sid, nil
}

// SignOut ends the session and deletes its cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := sm.session(r)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Flash notifications                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-shot notification shown on the next render.
type Flash struct {
	Kind    string
	Message string
}

// AddFlash queues a notification for the next page render.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	sess := sm.session(r)
	sess.AddFlash(Flash{Kind: kind, Message: message}, flashKey)
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("save flash failed", zap.Error(err), zap.String("kind", kind))
	}
}

// PopFlashes returns and clears queued notifications.
func (sm *SessionManager) PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess := sm.session(r)
	raw := sess.Flashes(flashKey)
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("clear flashes failed", zap.Error(err))
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
