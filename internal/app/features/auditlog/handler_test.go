package auditlog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/carehub/internal/app/features/errors"
	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	events  []audit.Event
	total   int64
	err     error
	queries []audit.QueryFilter
}

func (f *fakeStore) Query(_ context.Context, q audit.QueryFilter) ([]audit.Event, error) {
	f.queries = append(f.queries, q)
	return f.events, f.err
}

func (f *fakeStore) Count(_ context.Context, _ audit.QueryFilter) (int64, error) {
	return f.total, f.err
}

func newTestHandler(store *fakeStore) *Handler {
	logger := zap.NewNop()
	return NewHandler(store, []string{"zone", "user"}, uierrors.NewErrorLogger(logger), logger)
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	req := testutil.NewAuthenticatedRequest(http.MethodGet, target, testutil.AdminUser())
	rec := httptest.NewRecorder()
	func() {
		// Template rendering may panic without a booted engine.
		defer func() { _ = recover() }()
		h.ServeList(rec, req)
	}()
	return rec
}

func TestServeList_PassesFilters(t *testing.T) {
	store := &fakeStore{total: 120}
	h := newTestHandler(store)

	serve(h, "/audit?category=admin&event_type=record_deleted&resource=zone&start_date=2026-01-02&end_date=2026-01-03&page=2")

	require.Len(t, store.queries, 1)
	q := store.queries[0]
	assert.Equal(t, audit.CategoryAdmin, q.Category)
	assert.Equal(t, audit.EventRecordDeleted, q.EventType)
	assert.Equal(t, "zone", q.Resource)
	assert.Equal(t, int64(pageSize), q.Limit)
	assert.Equal(t, int64(pageSize), q.Offset)
	require.NotNil(t, q.StartTime)
	require.NotNil(t, q.EndTime)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *q.StartTime)
	assert.Equal(t, time.Date(2026, 1, 3, 23, 59, 59, 0, time.UTC), *q.EndTime)
}

func TestServeList_ClampsPagePastEnd(t *testing.T) {
	store := &fakeStore{total: 60}
	h := newTestHandler(store)

	serve(h, "/audit?page=9")

	require.Len(t, store.queries, 1)
	assert.Equal(t, int64(pageSize), store.queries[0].Offset, "page 9 of 2 queries page 2")
}

func TestServeList_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("boom")}
	h := newTestHandler(store)

	serve(h, "/audit")

	assert.Empty(t, store.queries, "a failed count stops before querying")
}

func TestParseFilters_DropsBadValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit?page=-3&start_date=yesterday&end_date=2026-02-30", nil)
	f := parseFilters(req)
	assert.Equal(t, 1, f.Page)
	assert.Empty(t, f.StartDate)
	assert.Empty(t, f.EndDate)

	q := f.query()
	assert.Nil(t, q.StartTime)
	assert.Nil(t, q.EndTime)
	assert.Zero(t, q.Offset)
}

func TestPageURL_KeepsFilters(t *testing.T) {
	d := listData{Filter: filters{Category: "auth", EventType: "logout", Page: 1}}
	assert.Equal(t, "/audit?category=auth&event_type=logout&page=3", d.PageURL(3))
}

func TestEventTypesForCategory(t *testing.T) {
	assert.Contains(t, eventTypesForCategory(audit.CategoryAuth), audit.EventLoginFailed)
	assert.NotContains(t, eventTypesForCategory(audit.CategoryAuth), audit.EventExported)
	assert.Contains(t, eventTypesForCategory(audit.CategoryAdmin), audit.EventBulkActivated)
	assert.Len(t, eventTypesForCategory(""),
		len(eventTypesForCategory(audit.CategoryAuth))+len(eventTypesForCategory(audit.CategoryAdmin)))
	assert.Nil(t, eventTypesForCategory("security"))
}

func TestLastPage(t *testing.T) {
	assert.Equal(t, 1, lastPage(0))
	assert.Equal(t, 1, lastPage(50))
	assert.Equal(t, 2, lastPage(51))
}

func TestToItem(t *testing.T) {
	it := toItem(audit.Event{RecordIDs: []int64{3, 9}, FailureReason: "nope"})
	assert.Equal(t, "3, 9", it.RecordIDs)
	assert.Equal(t, "nope", it.Reason)
}
