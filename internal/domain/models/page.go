package models

// PageEnvelope is the paginated collection shape returned by every list endpoint.
type PageEnvelope struct {
	Data        []Record `json:"data"`
	CurrentPage int      `json:"current_page"`
	LastPage    int      `json:"last_page"`
	PerPage     int      `json:"per_page"`
	Total       int      `json:"total,omitempty"`
}

// Normalize clamps the envelope so that 1 <= CurrentPage <= LastPage.
// Unpaginated responses (per_page=-1) often omit the paging fields.
func (p PageEnvelope) Normalize() PageEnvelope {
	if p.LastPage < 1 {
		p.LastPage = 1
	}
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
	if p.CurrentPage > p.LastPage {
		p.CurrentPage = p.LastPage
	}
	if p.PerPage <= 0 {
		p.PerPage = len(p.Data)
	}
	if p.Data == nil {
		p.Data = []Record{}
	}
	return p
}

// HasPrev reports whether a previous page exists.
func (p PageEnvelope) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (p PageEnvelope) HasNext() bool { return p.CurrentPage < p.LastPage }

// Find returns the loaded record with the given id.
func (p PageEnvelope) Find(id int64) (Record, bool) {
	for _, r := range p.Data {
		if rid, ok := r.ID(); ok && rid == id {
			return r, true
		}
	}
	return nil, false
}

// Lookups holds auxiliary reference collections returned next to the
// primary collection (e.g. "sectors" for a center list), keyed by name.
type Lookups map[string][]Record
