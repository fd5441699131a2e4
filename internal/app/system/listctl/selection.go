package listctl

import (
	"errors"
	"sort"

	"github.com/dalemusser/carehub/internal/domain/models"
)

// ErrEmptySelection rejects bulk operations with nothing selected.
var ErrEmptySelection = errors.New("listctl: empty selection")

// EmptySelectionMessage is the notification shown for ErrEmptySelection.
const EmptySelectionMessage = "You must select at least one Record."

// Selection is the set of checked row ids. It survives paging: ids picked
// on one page stay selected after moving to another, and bulk actions act
// on the whole set. Selection is not safe for concurrent use; Controller
// guards it.
type Selection struct {
	ids map[int64]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...int64) *Selection {
	s := &Selection{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll adds every id of the currently loaded page. It never refers to
// rows that are not loaded.
func (s *Selection) SelectAll(pageIDs []int64) {
	for _, id := range pageIDs {
		s.ids[id] = struct{}{}
	}
}

// UnselectAll removes the ids of the currently loaded page.
func (s *Selection) UnselectAll(pageIDs []int64) {
	for _, id := range pageIDs {
		delete(s.ids, id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() { clear(s.ids) }

// Has reports whether id is selected.
func (s *Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len is the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Require returns the selected ids, or ErrEmptySelection.
func (s *Selection) Require() ([]int64, error) {
	if len(s.ids) == 0 {
		return nil, ErrEmptySelection
	}
	return s.IDs(), nil
}

// AllOf reports whether every id in pageIDs is selected (and there is at
// least one), which drives the header checkbox.
func (s *Selection) AllOf(pageIDs []int64) bool {
	if len(pageIDs) == 0 {
		return false
	}
	for _, id := range pageIDs {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// Filter keeps the rows whose ids are selected, preserving order.
func (s *Selection) Filter(rows []models.Record) []models.Record {
	out := make([]models.Record, 0, len(s.ids))
	for _, r := range rows {
		if id, ok := r.ID(); ok && s.Has(id) {
			out = append(out, r)
		}
	}
	return out
}
