// internal/app/features/resourcelist/modal.go
package resourcelist

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

var validate = validator.New()

// ServeNew opens the create form.
// GET /admin/{resource}/new
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := sc.Ctl.OpenModal(listctl.ModeCreate, nil); err != nil {
		h.ErrLog.LogServerError(w, r, "open create form", err, "Could not open the form.", sc.Base)
		return
	}
	h.renderModal(w, r, sc, listctl.ModeCreate, listctl.FieldValues(nil, sc.Def.Fields), "", http.StatusOK)
}

// serveModal opens view, edit or assign for a row of the loaded page.
// GET /admin/{resource}/{id}/{view|edit|assign}
func (h *Handler) serveModal(mode listctl.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := h.resolve(w, r)
		if !ok {
			return
		}
		if mode == listctl.ModeAssign && !sc.Def.CanAssign() {
			notFound(w, r, sc)
			return
		}
		id, ok := idParam(r)
		if !ok {
			h.ErrLog.LogBadRequest(w, r, "bad modal id", nil, "Invalid record id.", sc.Base)
			return
		}

		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "modal "+sc.Def.Name)
		defer cancel()
		if err := h.ensureLoaded(ctx, sc); err != nil && h.sessionExpired(w, r, err) {
			return
		}

		rec, found := sc.Ctl.Record(id)
		if !found {
			notFound(w, r, sc)
			return
		}
		if err := sc.Ctl.OpenModal(mode, rec); err != nil {
			h.ErrLog.LogServerError(w, r, "open form", err, "Could not open the form.", sc.Base)
			return
		}
		h.renderModal(w, r, sc, mode, listctl.FieldValues(rec, modalFields(sc.Def, mode)), "", http.StatusOK)
	}
}

// HandleCloseModal dismisses the open form.
// POST /admin/{resource}/close
func (h *Handler) HandleCloseModal(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	sc.Ctl.CloseModal()
	if isHTMX(r) {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, sc.Base, http.StatusSeeOther)
}

// HandleCreate submits the create form.
// POST /admin/{resource}
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, listctl.ModeCreate, 0)
}

// HandleUpdate submits the edit or assign form; the "mode" form value
// picks which, defaulting to edit.
// POST /admin/{resource}/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "bad update id", nil, "Invalid record id.", "")
		return
	}
	mode := listctl.ParseMode(r.FormValue("mode"))
	if mode != listctl.ModeAssign {
		mode = listctl.ModeEdit
	}
	h.submit(w, r, mode, id)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, mode listctl.Mode, id int64) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if mode == listctl.ModeAssign && !sc.Def.CanAssign() {
		notFound(w, r, sc)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", sc.Base)
		return
	}

	fields := modalFields(sc.Def, mode)
	values := formValues(r, fields)
	h.ensureModal(sc, mode, id)

	// Validation never reaches the backend; the form stays open.
	if msg := validateValues(fields, values, mode); msg != "" {
		h.renderModal(w, r, sc, mode, values, msg, http.StatusUnprocessableEntity)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, string(mode)+" "+sc.Def.Name)
	defer cancel()

	err := sc.Ctl.SubmitModal(ctx, values, h.submitter(sc))
	h.AuditLog.Saved(ctx, r, sc.User, savedEvent(mode), sc.Def.Name, id, err)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.Log.Warn("save failed",
			zap.Error(err),
			zap.String("resource", sc.Def.Name),
			zap.String("mode", string(mode)),
			zap.Int64("id", id))
		h.renderModal(w, r, sc, mode, values, backend.UserMessage(err, "Save failed."), http.StatusUnprocessableEntity)
		return
	}

	notices := append([]auth.Flash{{Kind: auth.FlashSuccess, Message: sc.Def.Title + " saved."}}, h.refresh(ctx, sc)...)
	h.finish(w, r, sc, true, notices...)
}

// ensureModal reopens the form a submission belongs to when the
// controller lost it, e.g. after an idle eviction.
func (h *Handler) ensureModal(sc *scope, mode listctl.Mode, id int64) {
	snap := sc.Ctl.Snapshot()
	if snap.Modal == mode {
		if mode == listctl.ModeCreate {
			return
		}
		if sid, ok := snap.Subject.ID(); ok && sid == id {
			return
		}
	}
	rec, found := sc.Ctl.Record(id)
	if !found && mode != listctl.ModeCreate {
		rec = models.Record{"id": id}
	}
	if err := sc.Ctl.OpenModal(mode, rec); err != nil {
		h.Log.Warn("reopen form failed", zap.Error(err), zap.String("resource", sc.Def.Name))
	}
}

func (h *Handler) submitter(sc *scope) listctl.SubmitFunc {
	return func(ctx context.Context, payload map[string]any, mode listctl.Mode, id int64) error {
		body := wirePayload(modalFields(sc.Def, mode), payload, mode)
		var err error
		switch mode {
		case listctl.ModeCreate:
			_, err = sc.API.Create(ctx, sc.Def.Plural, body)
		case listctl.ModeEdit:
			_, err = sc.API.Update(ctx, sc.Def.Plural, id, body)
		case listctl.ModeAssign:
			_, err = sc.API.Assign(ctx, sc.Def.Plural, sc.Def.AssignPath, id, body)
		default:
			err = fmt.Errorf("cannot submit mode %q", mode)
		}
		return err
	}
}

func (h *Handler) renderModal(w http.ResponseWriter, r *http.Request, sc *scope, mode listctl.Mode, values map[string]any, errMsg string, status int) {
	md := buildModal(sc, sc.Ctl.Snapshot(), mode, values, errMsg, csrf.Token(r))
	if isHTMX(r) {
		w.WriteHeader(status)
		templates.RenderSnippet(w, "resourcelist_modal", md)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list "+sc.Def.Name)
	defer cancel()
	if err := h.ensureLoaded(ctx, sc); err != nil {
		h.Log.Warn("list fetch failed", zap.Error(err), zap.String("resource", sc.Def.Name))
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	h.renderList(w, r, sc, md)
}

func savedEvent(mode listctl.Mode) string {
	switch mode {
	case listctl.ModeCreate:
		return audit.EventRecordCreated
	case listctl.ModeAssign:
		return audit.EventRecordAssigned
	}
	return audit.EventRecordUpdated
}

// formValues reads the submitted form in the same shape FieldValues
// produces: strings for scalars, string slices for multi relations.
func formValues(r *http.Request, fields []catalog.Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Multi {
			vals := []string{}
			for _, v := range r.Form[f.Name] {
				if v = strings.TrimSpace(v); v != "" {
					vals = append(vals, v)
				}
			}
			out[f.Name] = vals
			continue
		}
		out[f.Name] = strings.TrimSpace(r.Form.Get(f.Name))
	}
	return out
}

// validateValues returns the first problem with values, or "".
func validateValues(fields []catalog.Field, values map[string]any, mode listctl.Mode) string {
	for _, f := range fields {
		switch v := values[f.Name].(type) {
		case []string:
			if f.Required && len(v) == 0 {
				return f.Label + " is required."
			}
		case string:
			required := f.Required
			if f.Widget == "password" && mode != listctl.ModeCreate {
				required = false
			}
			if required && v == "" {
				return f.Label + " is required."
			}
			if v == "" {
				continue
			}
			switch f.Widget {
			case "email":
				if validate.Var(v, "email") != nil {
					return f.Label + " must be a valid email address."
				}
			case "number":
				if validate.Var(v, "numeric") != nil {
					return f.Label + " must be a number."
				}
			case "date":
				if validate.Var(v, "datetime=2006-01-02") != nil {
					return f.Label + " must be a date (YYYY-MM-DD)."
				}
			}
		}
	}
	return ""
}

// wirePayload converts form values to the backend body. Relations are
// sent as "<name>_id", ids and numbers as numbers, and a blank password
// outside create mode is left out so it stays unchanged.
func wirePayload(fields []catalog.Field, values map[string]any, mode listctl.Mode) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch v := values[f.Name].(type) {
		case []string:
			ids := make([]any, 0, len(v))
			for _, s := range v {
				ids = append(ids, number(s))
			}
			out[f.Name] = ids
		case string:
			switch {
			case f.Relation:
				if v == "" {
					out[f.Name+"_id"] = nil
				} else {
					out[f.Name+"_id"] = number(v)
				}
			case f.Widget == "password":
				if v != "" || mode == listctl.ModeCreate {
					out[f.Name] = v
				}
			case f.Widget == "number":
				if v == "" {
					out[f.Name] = nil
				} else {
					out[f.Name] = number(v)
				}
			default:
				out[f.Name] = v
			}
		}
	}
	return out
}

// number returns s as an int64 or float64 when it parses, else s.
func number(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
