// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/carehub/internal/app/features/errors"
	"github.com/dalemusser/carehub/internal/app/system/auditlog"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/export"
	"github.com/dalemusser/carehub/internal/app/system/navigation"
	"github.com/dalemusser/carehub/internal/app/system/ratelimit"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Backend    *backend.Client
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
}

func NewHandler(
	sessionMgr *auth.SessionManager,
	client *backend.Client,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Backend:    client,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    limiter,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	Email     string
	ReturnURL string
}

// credentials is the submitted sign-in form.
type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

var validate = validator.New()

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, navigation.SafeBackURL(r, navigation.LoginReturn), http.StatusSeeOther)
		return
	}
	h.renderForm(w, r, http.StatusOK, "", "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	in := credentials{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if msg := formError(in); msg != "" {
		h.renderForm(w, r, http.StatusUnprocessableEntity, msg, in.Email)
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, in.Email); !ok {
			h.AuditLog.LoginFailed(r.Context(), r, in.Email, "rate limited")
			h.renderForm(w, r, http.StatusTooManyRequests, msg, in.Email)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	res, err := h.Backend.As("").Login(ctx, in.Email, in.Password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			h.AuditLog.LoginFailed(ctx, r, in.Email, "rejected by backend")
			h.renderForm(w, r, http.StatusUnauthorized, backend.UserMessage(err, "Invalid email or password."), in.Email)
			return
		}
		h.Log.Error("backend login failed", zap.Error(err))
		h.AuditLog.LoginFailed(ctx, r, in.Email, "backend unavailable")
		h.renderForm(w, r, http.StatusBadGateway, "Sign-in is unavailable right now. Please try again.", in.Email)
		return
	}

	u := sessionUser(res, in.Email)
	if _, err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("email", in.Email))
		h.renderForm(w, r, http.StatusInternalServerError, "Unable to create session. Please try again.", in.Email)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)

	http.Redirect(w, r, navigation.SafeBackURL(r, navigation.LoginReturn), http.StatusSeeOther)
}

// formError returns the message for the first invalid field, or "".
func formError(in credentials) string {
	err := validate.Struct(in)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please check the form."
	}
	switch fe := verrs[0]; {
	case fe.Field() == "Email" && fe.Tag() == "email":
		return "Please enter a valid email address."
	case fe.Field() == "Email":
		return "Please enter your email address."
	default:
		return "Please enter your password."
	}
}

// sessionUser maps the backend's sign-in answer onto the session.
func sessionUser(res models.LoginResult, email string) auth.SessionUser {
	u := auth.SessionUser{
		ID:          res.User.IDString(),
		Name:        export.Flatten(res.User["name"]),
		Email:       export.Flatten(res.User["email"]),
		Token:       res.Token,
		Permissions: res.Permissions,
	}
	if u.Email == "" {
		u.Email = email
	}
	if u.Name == "" {
		u.Name = u.Email
	}
	return u
}

/*─────────────────────────────────────────────────────────────────────────────*
| helper: render the form                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, msg, email string) {
	// From POST, "return" will be in the form; from GET, in the query.
	ret := navigation.SafeBackURL(r, navigation.BackURLOptions{ExcludedSubpaths: navigation.LoginReturn.ExcludedSubpaths})

	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:     msg,
		Email:     email,
		ReturnURL: ret,
	})
}
