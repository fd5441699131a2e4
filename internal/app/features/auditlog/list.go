// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/paging"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// ServeList handles GET /audit - the audit log with filtering.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	f := parseFilters(r)
	q := f.query()

	total, err := h.Store.Count(ctx, q)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		h.ErrLog.LogServerError(w, r, "database error", err, "A database error occurred.", "/dashboard")
		return
	}

	// A page past the end shows the last one.
	last := lastPage(total)
	if f.Page > last {
		f.Page = last
		q = f.query()
	}

	events, err := h.Store.Query(ctx, q)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		h.ErrLog.LogServerError(w, r, "database error", err, "A database error occurred.", "/dashboard")
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e))
	}

	nav := paging.Build(models.PageEnvelope{
		CurrentPage: f.Page,
		LastPage:    last,
		PerPage:     pageSize,
		Total:       int(total),
	})
	if len(items) > 0 {
		nav.Range.Start = (f.Page-1)*pageSize + 1
		nav.Range.End = nav.Range.Start + len(items) - 1
	}

	templates.Render(w, r, "audit_list", listData{
		BaseVM:     viewdata.NewBaseVM(r, "Audit Log", "/dashboard"),
		Items:      items,
		Filter:     f,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(f.Category),
		Resources:  h.Resources,
		Nav:        nav,
	})
}

func parseFilters(r *http.Request) filters {
	get := func(k string) string { return strings.TrimSpace(r.URL.Query().Get(k)) }
	f := filters{
		Category:  get("category"),
		EventType: get("event_type"),
		Resource:  get("resource"),
		StartDate: get("start_date"),
		EndDate:   get("end_date"),
		Page:      1,
	}
	if p, err := strconv.Atoi(get("page")); err == nil && p > 0 {
		f.Page = p
	}
	// Dates that do not parse are dropped rather than echoed back.
	if _, err := time.Parse(dateLayout, f.StartDate); err != nil {
		f.StartDate = ""
	}
	if _, err := time.Parse(dateLayout, f.EndDate); err != nil {
		f.EndDate = ""
	}
	return f
}

func (f filters) query() audit.QueryFilter {
	q := audit.QueryFilter{
		Category:  f.Category,
		EventType: f.EventType,
		Resource:  f.Resource,
		Limit:     pageSize,
		Offset:    int64((f.Page - 1) * pageSize),
	}
	if t, err := time.Parse(dateLayout, f.StartDate); err == nil {
		q.StartTime = &t
	}
	if t, err := time.Parse(dateLayout, f.EndDate); err == nil {
		// End of day
		end := t.Add(24*time.Hour - time.Second)
		q.EndTime = &end
	}
	return q
}

func lastPage(total int64) int {
	return max(int((total+pageSize-1)/pageSize), 1)
}

func toItem(e audit.Event) listItem {
	ids := make([]string, 0, len(e.RecordIDs))
	for _, id := range e.RecordIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return listItem{
		ID:        e.ID.Hex(),
		Timestamp: e.Timestamp,
		Category:  e.Category,
		EventType: e.EventType,
		UserEmail: e.UserEmail,
		Resource:  e.Resource,
		RecordIDs: strings.Join(ids, ", "),
		Count:     e.Count,
		IP:        e.IP,
		Success:   e.Success,
		Reason:    e.FailureReason,
		Details:   e.Details,
	}
}
