package resourcelist

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userDef(t *testing.T) catalog.Definition {
	t.Helper()
	def, ok := catalog.Default().Get("user")
	require.True(t, ok)
	return def
}

func parsedForm(t *testing.T, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())
	return req
}

func TestFormValues(t *testing.T) {
	def := userDef(t)
	req := parsedForm(t, url.Values{
		"name":   {"  Ada  "},
		"email":  {"ada@example.org"},
		"center": {"3"},
	})

	got := formValues(req, def.Fields)
	assert.Equal(t, "Ada", got["name"])
	assert.Equal(t, "3", got["center"])
	assert.Equal(t, "", got["password"])

	roles := formValues(parsedForm(t, url.Values{"roles": {"1", " ", "4"}}), def.AssignFields)
	assert.Equal(t, []string{"1", "4"}, roles["roles"])

	none := formValues(parsedForm(t, url.Values{}), def.AssignFields)
	assert.Equal(t, []string{}, none["roles"], "an empty multi field is an empty list, not nil")
}

func TestValidateValues(t *testing.T) {
	def := userDef(t)
	valid := map[string]any{"name": "Ada", "email": "ada@example.org", "password": "", "center": "3", "tbc": "7"}

	tests := []struct {
		name   string
		change map[string]any
		mode   listctl.Mode
		want   string
	}{
		{"valid edit", nil, listctl.ModeEdit, ""},
		{"missing name", map[string]any{"name": ""}, listctl.ModeEdit, "Name is required."},
		{"bad email", map[string]any{"email": "nope"}, listctl.ModeEdit, "Email must be a valid email address."},
		{"missing relation", map[string]any{"center": ""}, listctl.ModeCreate, "Center is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]any{}
			for k, v := range valid {
				values[k] = v
			}
			for k, v := range tt.change {
				values[k] = v
			}
			assert.Equal(t, tt.want, validateValues(def.Fields, values, tt.mode))
		})
	}

	assert.Equal(t, "Roles is required.",
		validateValues(def.AssignFields, map[string]any{"roles": []string{}}, listctl.ModeAssign))

	rank, ok := catalog.Default().Get("rank")
	require.True(t, ok)
	assert.Equal(t, "Level must be a number.",
		validateValues(rank.Fields, map[string]any{"name": "Major", "level": "high"}, listctl.ModeCreate))
}

func TestWirePayload(t *testing.T) {
	def := userDef(t)
	values := map[string]any{"name": "Ada", "email": "ada@example.org", "password": "", "center": "3", "tbc": ""}

	edit := wirePayload(def.Fields, values, listctl.ModeEdit)
	assert.Equal(t, map[string]any{
		"name":      "Ada",
		"email":     "ada@example.org",
		"center_id": int64(3),
		"tbc_id":    nil,
	}, edit, "a blank password is left out on edit")

	create := wirePayload(def.Fields, values, listctl.ModeCreate)
	assert.Contains(t, create, "password")

	assign := wirePayload(def.AssignFields, map[string]any{"roles": []string{"1", "4"}}, listctl.ModeAssign)
	assert.Equal(t, []any{int64(1), int64(4)}, assign["roles"])
}

// What the modal shows for a record and what it sends back must agree.
func TestWirePayload_MatchesRecordRelations(t *testing.T) {
	def := userDef(t)
	rec := models.Record{"id": int64(9), "name": "Ada", "email": "ada@example.org", "center_id": int64(3), "tbc_id": int64(7)}

	values := listctl.FieldValues(rec, def.Fields)
	body := wirePayload(def.Fields, values, listctl.ModeEdit)
	assert.Equal(t, int64(3), body["center_id"])
	assert.Equal(t, int64(7), body["tbc_id"])
	assert.Equal(t, "Ada", body["name"])
}

func TestNumber(t *testing.T) {
	assert.Equal(t, int64(42), number("42"))
	assert.Equal(t, 1.5, number("1.5"))
	assert.Equal(t, "x1", number("x1"))
}

func TestModalTitleAndFields(t *testing.T) {
	def := userDef(t)
	assert.Equal(t, "New user", modalTitle(def, listctl.ModeCreate))
	assert.Equal(t, "Assign user", modalTitle(def, listctl.ModeAssign))
	assert.Equal(t, def.AssignFields, modalFields(def, listctl.ModeAssign))
	assert.Equal(t, def.Fields, modalFields(def, listctl.ModeEdit))
}

func TestOptions(t *testing.T) {
	recs := []models.Record{
		{"id": int64(1), "name": "North"},
		{"id": int64(2), "label": "South"},
		{"id": int64(3)},
	}
	got := options(recs, map[string]bool{"2": true})
	assert.Equal(t, []optionVM{
		{Value: "1", Label: "North"},
		{Value: "2", Label: "South", Selected: true},
		{Value: "3", Label: "3"},
	}, got)
}

func TestSavedEvent(t *testing.T) {
	assert.NotEqual(t, savedEvent(listctl.ModeCreate), savedEvent(listctl.ModeEdit))
	assert.NotEqual(t, savedEvent(listctl.ModeAssign), savedEvent(listctl.ModeEdit))
}
