// internal/app/features/auditlog/types.go
package auditlog

import (
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/paging"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
)

// listItem is one audit event row.
type listItem struct {
	ID        string
	Timestamp time.Time
	Category  string
	EventType string
	UserEmail string
	Resource  string
	RecordIDs string
	Count     int
	IP        string
	Success   bool
	Reason    string
	Details   map[string]string
}

// listData is the view model for the audit log page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Filter filters

	// Filter options
	Categories []categoryOption
	EventTypes []string
	Resources  []string

	Nav paging.Nav
}

// PageURL keeps the active filters when moving between pages.
func (d listData) PageURL(page int) string {
	v := d.Filter.values()
	v.Set("page", strconv.Itoa(page))
	return "/audit?" + v.Encode()
}

type categoryOption struct {
	Value string
	Label string
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryAdmin, Label: "Administration"},
	}
}

// eventTypesForCategory returns the event types for a category, or all
// of them when category is empty. Unknown categories have none.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailed,
		audit.EventLogout,
	}

	adminEvents := []string{
		audit.EventRecordCreated,
		audit.EventRecordUpdated,
		audit.EventRecordAssigned,
		audit.EventRecordDeleted,
		audit.EventStatusChanged,
		audit.EventBulkActivated,
		audit.EventBulkDeactivated,
		audit.EventImported,
		audit.EventExported,
		audit.EventPrinted,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents))
		all = append(all, authEvents...)
		return append(all, adminEvents...)
	default:
		return nil
	}
}

// filters are the query string values the page was requested with.
type filters struct {
	Category  string
	EventType string
	Resource  string
	StartDate string
	EndDate   string
	Page      int
}

func (f filters) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("category", f.Category)
	set("event_type", f.EventType)
	set("resource", f.Resource)
	set("start_date", f.StartDate)
	set("end_date", f.EndDate)
	return v
}
