package resourcelist

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/importer"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/metrics"
	"github.com/dalemusser/carehub/internal/app/system/printer"
	"github.com/dalemusser/carehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend answers the category endpoints and records every call.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	queries []url.Values
	bodies  []string
	status  int // forced status for non-list calls; 0 means 200
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.queries = append(f.queries, r.URL.Query())
	f.bodies = append(f.bodies, string(body))
	forced := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if forced != 0 {
		w.WriteHeader(forced)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/categories":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"categories": map[string]any{
				"data": []map[string]any{
					{"id": 1, "name": "Alpha", "description": "first, one", "status": "active"},
					{"id": 2, "name": "Beta", "description": "second", "status": "inactive"},
				},
				"current_page": 1,
				"last_page":    1,
				"per_page":     10,
			},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/categories/import":
		_, _ = w.Write([]byte(`{"imported_count":2,"skipped_count":1,"warnings":["row 3: <b>duplicate</b> code"]}`))
	case r.Method == http.MethodDelete:
		_, _ = w.Write([]byte(`{"message":"Category deleted."}`))
	default:
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Body returns the request body of call i.
func (f *fakeBackend) Body(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[i]
}

// Query returns the query string of call i.
func (f *fakeBackend) Query(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[i]
}

func newTestHandler(t *testing.T) (*Handler, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	sm, err := auth.NewSessionManager(auth.Config{
		Key: "test-session-key-must-be-32-chars-long",
		Dir: t.TempDir(),
	}, zap.NewNop())
	require.NoError(t, err)

	h := NewHandler(catalog.Default(), client, listctl.NewRegistry(), importer.NewEngine(1<<20),
		printer.NewEngine(), sm, nil, metrics.New(nil), nil, 0, zap.NewNop())
	return h, fb
}

func postForm(target string, form url.Values, user testutil.TestUser, params map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = testutil.WithUser(req, user)
	for k, v := range params {
		req = testutil.WithChiURLParam(req, k, v)
	}
	return req
}

func categoryController(t *testing.T, h *Handler, user testutil.TestUser) *listctl.Controller {
	t.Helper()
	def, ok := h.Catalog.Get("categories")
	require.True(t, ok)
	ctl, _ := h.Registry.Get(user.SessionID, &def)
	return ctl
}

func TestHandleBulk_EmptySelectionSendsNothing(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	rec := httptest.NewRecorder()
	h.HandleBulk(rec, postForm("/admin/categories/bulk/activate", nil, user,
		map[string]string{"resource": "categories", "action": "activate"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/categories", rec.Header().Get("Location"))
	assert.Empty(t, fb.Calls())
}

func TestHandleBulk_SendsSelectionAndClearsIt(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()
	ctl := categoryController(t, h, user)
	ctl.Toggle(1)
	ctl.Toggle(2)

	rec := httptest.NewRecorder()
	h.HandleBulk(rec, postForm("/admin/categories/bulk/deactivate", nil, user,
		map[string]string{"resource": "categories", "action": "deactivate"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	calls := fb.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "PUT /api/categories/bulk-deactivate", calls[0])
	assert.JSONEq(t, `{"category_ids":[1,2]}`, fb.bodies[0])
	assert.Contains(t, calls, "GET /api/categories", "a successful bulk action refreshes the list")

	_, err := ctl.Selected()
	assert.ErrorIs(t, err, listctl.ErrEmptySelection)
}

func TestHandleBulk_UnsupportedResource(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	// permissions are not bulk capable
	rec := httptest.NewRecorder()
	h.HandleBulk(rec, postForm("/admin/permissions/bulk/activate", nil, user,
		map[string]string{"resource": "permissions", "action": "activate"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, fb.Calls())
}

func TestHandleDelete_RequiresConfirmation(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	rec := httptest.NewRecorder()
	h.HandleDelete(rec, postForm("/admin/categories/1/delete", url.Values{"confirm": {"no"}}, user,
		map[string]string{"resource": "categories", "id": "1"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, fb.Calls())
}

func TestHandleDelete_Confirmed(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	rec := httptest.NewRecorder()
	h.HandleDelete(rec, postForm("/admin/categories/1/delete", url.Values{"confirm": {"yes"}}, user,
		map[string]string{"resource": "categories", "id": "1"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"DELETE /api/categories/delete/1", "GET /api/categories"}, fb.Calls())
}

func TestHandleDelete_ExpiredTokenSignsOut(t *testing.T) {
	h, fb := newTestHandler(t)
	fb.status = http.StatusUnauthorized
	user := testutil.AdminUser()
	categoryController(t, h, user)
	require.Equal(t, 1, h.Registry.Len())

	rec := httptest.NewRecorder()
	h.HandleDelete(rec, postForm("/admin/categories/1/delete", url.Values{"confirm": {"yes"}}, user,
		map[string]string{"resource": "categories", "id": "1"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, 0, h.Registry.Len())
}

func TestHandleDelete_ExpiredTokenHTMX(t *testing.T) {
	h, fb := newTestHandler(t)
	fb.status = http.StatusUnauthorized
	user := testutil.AdminUser()

	req := postForm("/admin/categories/1/delete", url.Values{"confirm": {"yes"}}, user,
		map[string]string{"resource": "categories", "id": "1"})
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestHandleExport_EmptySelection(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/admin/categories/export?format=csv&scope=selected", user)
	req = testutil.WithChiURLParam(req, "resource", "categories")
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, fb.Calls())
}

func TestHandleExport_AllRows(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/admin/categories/export?format=csv&scope=all", user)
	req = testutil.WithChiURLParam(req, "resource", "categories")
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"GET /api/categories"}, fb.Calls())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "all_categories_2.csv")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "ID,Name,Description,Created At"), body)
	assert.Contains(t, body, `"first, one"`)
}

func TestHandleExport_SelectedRows(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()
	ctl := categoryController(t, h, user)
	require.NoError(t, ctl.Refresh(t.Context(), h.Backend.As(user.Token)))
	ctl.Toggle(2)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/admin/categories/export?format=csv&scope=selected", user)
	req = testutil.WithChiURLParam(req, "resource", "categories")
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fb.Calls(), 1, "only the refresh above reaches the backend")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "selected_categories_1.csv")
	assert.Contains(t, rec.Body.String(), "Beta")
	assert.NotContains(t, rec.Body.String(), "Alpha")
}

func TestServePrint_WritesStagedView(t *testing.T) {
	h, fb := newTestHandler(t)
	user := testutil.AdminUser()

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/admin/categories/print", user)
	req = testutil.WithChiURLParam(req, "resource", "categories")
	rec := httptest.NewRecorder()
	h.ServePrint(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"GET /api/categories"}, fb.Calls())
	body := rec.Body.String()
	assert.Contains(t, body, "Categories")
	assert.Contains(t, body, "Alpha")
	assert.Contains(t, body, "Beta")
	assert.Contains(t, body, "window.print()")

	key := user.SessionID + "/category"
	assert.Equal(t, printer.Idle, h.Prints.State(key))
}

func TestPerm(t *testing.T) {
	h, _ := newTestHandler(t)
	req := testutil.WithChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "resource", "zones")
	assert.Equal(t, "zone.export", h.perm(catalog.ActionExport)(req))

	req = testutil.WithChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "resource", "nope")
	assert.Equal(t, "", h.perm(catalog.ActionExport)(req))
}
