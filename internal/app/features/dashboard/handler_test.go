package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAudit struct {
	events []audit.Event
	err    error
	got    audit.QueryFilter
}

func (f *fakeAudit) Query(_ context.Context, q audit.QueryFilter) ([]audit.Event, error) {
	f.got = q
	return f.events, f.err
}

func TestServeDashboard_Unauthenticated(t *testing.T) {
	h := NewHandler(nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestServeDashboard_SignedIn(t *testing.T) {
	h := NewHandler(&fakeAudit{}, nil, zap.NewNop())
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/dashboard", testutil.AdminUser())
	rec := httptest.NewRecorder()

	func() {
		// Template rendering may panic without a booted engine.
		defer func() { _ = recover() }()
		h.ServeDashboard(rec, req)
	}()

	assert.NotEqual(t, http.StatusSeeOther, rec.Code)
}

func TestRecent_QueriesOwnEvents(t *testing.T) {
	store := &fakeAudit{events: []audit.Event{
		{EventType: audit.EventBulkActivated, Resource: "zone", RecordIDs: []int64{1, 2, 3}, Success: true},
		{EventType: audit.EventExported, Resource: "zone", Count: 40, Success: true},
	}}
	h := NewHandler(store, nil, zap.NewNop())

	got := h.recent(context.Background(), "42")

	assert.Equal(t, "42", store.got.UserID)
	assert.Equal(t, int64(recentLimit), store.got.Limit)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Count, "count falls back to the number of record ids")
	assert.Equal(t, 40, got[1].Count)
}

func TestRecent_HiddenWithoutStoreOrOnError(t *testing.T) {
	assert.Nil(t, NewHandler(nil, nil, zap.NewNop()).recent(context.Background(), "42"))

	failing := NewHandler(&fakeAudit{err: errors.New("down")}, nil, zap.NewNop())
	assert.Nil(t, failing.recent(context.Background(), "42"))
}
