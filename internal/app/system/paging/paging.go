// internal/app/system/paging/paging.go
package paging

import (
	"github.com/dalemusser/carehub/internal/domain/models"
)

// Span is how many page numbers are shown on each side of the current one.
const Span = 2

// Range holds the "Showing Start-End of Total" values for a page.
type Range struct {
	Start int // 1-based index of the first row (0 if no results)
	End   int // 1-based index of the last row (0 if no results)
	Total int // total rows when the backend reports it, else 0
}

// ComputeRange derives the display range from a normalized envelope.
func ComputeRange(env models.PageEnvelope) Range {
	shown := len(env.Data)
	if shown == 0 {
		return Range{Total: env.Total}
	}
	per := env.PerPage
	if per <= 0 {
		per = shown
	}
	start := (env.CurrentPage-1)*per + 1
	return Range{Start: start, End: start + shown - 1, Total: env.Total}
}

// Item is one entry of the page-number bar. Gap items render as an
// ellipsis and carry no page.
type Item struct {
	Page    int
	Current bool
	Gap     bool
}

// Nav is the pagination bar for one envelope.
type Nav struct {
	Range    Range
	Current  int
	Last     int
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
	Items    []Item
}

// Build returns the navigation for env, showing the first and last pages
// plus Span pages around the current one.
func Build(env models.PageEnvelope) Nav {
	env = env.Normalize()
	n := Nav{
		Range:   ComputeRange(env),
		Current: env.CurrentPage,
		Last:    env.LastPage,
		HasPrev: env.HasPrev(),
		HasNext: env.HasNext(),
		Items:   Window(env.CurrentPage, env.LastPage, Span),
	}
	n.PrevPage = max(env.CurrentPage-1, 1)
	n.NextPage = min(env.CurrentPage+1, env.LastPage)
	return n
}

// Window lists the page numbers to show for current of last with span
// neighbours, inserting a gap wherever numbers are skipped.
func Window(current, last, span int) []Item {
	if last < 1 {
		return nil
	}
	lo := max(current-span, 1)
	hi := min(current+span, last)

	var items []Item
	add := func(p int) {
		items = append(items, Item{Page: p, Current: p == current})
	}
	if lo > 1 {
		add(1)
		if lo > 2 {
			items = append(items, Item{Gap: true})
		}
	}
	for p := lo; p <= hi; p++ {
		add(p)
	}
	if hi < last {
		if hi < last-1 {
			items = append(items, Item{Gap: true})
		}
		add(last)
	}
	return items
}
