package listctl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/domain/models"
)

// Mode is the modal form state.
type Mode string

const (
	ModeClosed Mode = ""
	ModeCreate Mode = "create"
	ModeView   Mode = "view"
	ModeEdit   Mode = "edit"
	ModeAssign Mode = "assign"
)

// ParseMode maps a request value to a Mode; unknown values are closed.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCreate:
		return ModeCreate
	case ModeView:
		return ModeView
	case ModeEdit:
		return ModeEdit
	case ModeAssign:
		return ModeAssign
	}
	return ModeClosed
}

// Modal errors.
var (
	ErrModalOpen     = errors.New("listctl: modal already open")
	ErrModalClosed   = errors.New("listctl: modal is closed")
	ErrNoSubject     = errors.New("listctl: mode requires a subject record")
	ErrReadOnlyModal = errors.New("listctl: view mode cannot submit")
)

// SubmitFunc performs the resource-specific create/update/assign call.
// subjectID is 0 in create mode.
type SubmitFunc func(ctx context.Context, payload map[string]any, mode Mode, subjectID int64) error

// Modal tracks which form is open and for which record.
//
//	closed -> create                 (Add button)
//	closed -> view | edit | assign   (row action, carries the record)
//	any    -> closed                 (cancel, dismiss, successful submit)
type Modal struct {
	mode    Mode
	subject models.Record
}

// Mode returns the current state.
func (m *Modal) Mode() Mode { return m.mode }

// Subject returns the record the modal was opened for (nil for create).
func (m *Modal) Subject() models.Record { return m.subject }

// IsOpen reports whether any form is shown.
func (m *Modal) IsOpen() bool { return m.mode != ModeClosed }

// ReadOnly reports whether fields render read-only.
func (m *Modal) ReadOnly() bool { return m.mode == ModeView }

// OpenCreate opens an empty create form.
func (m *Modal) OpenCreate() error {
	if m.IsOpen() {
		return ErrModalOpen
	}
	m.mode = ModeCreate
	m.subject = nil
	return nil
}

// Open opens view, edit or assign for rec.
func (m *Modal) Open(mode Mode, rec models.Record) error {
	if m.IsOpen() {
		return ErrModalOpen
	}
	switch mode {
	case ModeCreate:
		return m.OpenCreate()
	case ModeView, ModeEdit, ModeAssign:
	default:
		return fmt.Errorf("listctl: cannot open mode %q", mode)
	}
	if rec == nil {
		return ErrNoSubject
	}
	if _, ok := rec.ID(); !ok {
		return ErrNoSubject
	}
	m.mode = mode
	m.subject = rec
	return nil
}

// Close returns to the closed state and drops the subject.
func (m *Modal) Close() {
	m.mode = ModeClosed
	m.subject = nil
}

// Submit hands payload to submit. On success the modal closes; on failure
// it stays open with the same subject so the user can correct and retry.
func (m *Modal) Submit(ctx context.Context, payload map[string]any, submit SubmitFunc) error {
	switch m.mode {
	case ModeClosed:
		return ErrModalClosed
	case ModeView:
		return ErrReadOnlyModal
	}
	var id int64
	if m.subject != nil {
		id, _ = m.subject.ID()
	}
	if err := submit(ctx, payload, m.mode, id); err != nil {
		return err
	}
	m.Close()
	return nil
}

// FieldValues maps a subject record onto the given field list. Plain
// fields read rec[name]; relation fields read rec[name+"_id"] coerced to a
// string; multi relations collect the ids of the nested rec[name] array.
// A nil record (create mode) yields empty values.
func FieldValues(rec models.Record, fields []catalog.Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Name] = fieldValue(rec, f)
	}
	return out
}

func fieldValue(rec models.Record, f catalog.Field) any {
	switch {
	case f.Multi:
		return relationIDs(rec[f.Name])
	case f.Relation:
		v, ok := rec[f.Name+"_id"]
		if !ok {
			// Fall back to the nested relation object's id.
			if obj, isObj := rec[f.Name].(map[string]any); isObj {
				v = obj["id"]
			}
		}
		return scalarString(v)
	case f.Widget == "password":
		return ""
	default:
		return scalarString(rec[f.Name])
	}
}

// relationIDs returns the string ids of a nested relation array. Plain
// scalar arrays are treated as id lists.
func relationIDs(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if obj, isObj := it.(map[string]any); isObj {
			if s := scalarString(obj["id"]); s != "" {
				out = append(out, s)
			}
			continue
		}
		if s := scalarString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if id, ok := models.AsID(t); ok {
			return fmt.Sprintf("%d", id)
		}
		return fmt.Sprintf("%g", t)
	case map[string]any, []any:
		return ""
	}
	return fmt.Sprint(v)
}
