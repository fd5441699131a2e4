// Package listctl owns the list-view state for one resource: the query
// (page, page size, sort, search), the row selection used by bulk actions,
// the create/view/edit/assign modal, and the sequencing of list fetches.
package listctl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
)

// SortDir is a sort direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// Query defaults applied on mount.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	DefaultSortBy  = "created_at"
	DefaultSortDir = Desc

	// MaxPerPage bounds user-chosen page sizes; "all rows" fetches for
	// export and print bypass it.
	MaxPerPage = 100
)

// Query is the list request state. Every mutation yields a new Query and
// triggers exactly one refetch with the full state.
type Query struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir SortDir
}

// DefaultQuery is the state a list starts in.
func DefaultQuery() Query {
	return Query{
		Page:    DefaultPage,
		PerPage: DefaultPerPage,
		SortBy:  DefaultSortBy,
		SortDir: DefaultSortDir,
	}
}

// Values serializes the query as backend request parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("search", q.Search)
	v.Set("sort_by", q.SortBy)
	v.Set("sort_dir", string(q.SortDir))
	return v
}

// Sortable reports whether key may be sent as sort_by for def: one of
// its data columns or the default sort key.
func Sortable(def *catalog.Definition, key string) bool {
	if key == catalog.KeyActions {
		return false
	}
	return key == DefaultSortBy || def.HasColumn(key)
}

// ParseQuery reads a query from request parameters, falling back to the
// defaults for anything missing or invalid. allowed restricts sort_by to
// known column keys; nil accepts any non-empty key.
func ParseQuery(v url.Values, allowed func(string) bool) Query {
	q := DefaultQuery()
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n >= 1 {
		q.Page = n
	}
	if n, err := strconv.Atoi(v.Get("per_page")); err == nil && n >= 1 {
		if n > MaxPerPage {
			n = MaxPerPage
		}
		q.PerPage = n
	}
	q.Search = strings.TrimSpace(v.Get("search"))
	if s := strings.TrimSpace(v.Get("sort_by")); s != "" && (allowed == nil || allowed(s)) {
		q.SortBy = s
	}
	switch SortDir(strings.ToLower(v.Get("sort_dir"))) {
	case Asc:
		q.SortDir = Asc
	case Desc:
		q.SortDir = Desc
	}
	return q
}

// WithSearch sets the search term and returns to the first page.
func (q Query) WithSearch(term string) Query {
	q.Search = strings.TrimSpace(term)
	q.Page = 1
	return q
}

// WithSort applies a column header click: a new column starts ascending,
// the current column flips direction.
func (q Query) WithSort(column string) Query {
	if q.SortBy == column {
		if q.SortDir == Asc {
			q.SortDir = Desc
		} else {
			q.SortDir = Asc
		}
		return q
	}
	q.SortBy = column
	q.SortDir = Asc
	return q
}

// WithPage moves to page p (clamped to >= 1).
func (q Query) WithPage(p int) Query {
	if p < 1 {
		p = 1
	}
	q.Page = p
	return q
}

// WithPerPage changes the page size and returns to the first page.
func (q Query) WithPerPage(n int) Query {
	if n < 1 {
		n = DefaultPerPage
	}
	if n > MaxPerPage {
		n = MaxPerPage
	}
	q.PerPage = n
	q.Page = 1
	return q
}
