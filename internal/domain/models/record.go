package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Record is one row of one backend resource, decoded as a generic map.
// The dashboard only relies on an "id", an optional "status" and optional
// nested relation objects carrying a "label" or "name".
type Record map[string]any

// ID returns the record's numeric id. Backends send ids as JSON numbers,
// occasionally as numeric strings.
func (r Record) ID() (int64, bool) {
	return AsID(r["id"])
}

// IDString returns the id formatted for URLs and form values, or "".
func (r Record) IDString() string {
	id, ok := r.ID()
	if !ok {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// Status returns the lower-cased "status" value, or "" when absent.
func (r Record) Status() string {
	s, _ := r["status"].(string)
	return strings.ToLower(strings.TrimSpace(s))
}

// IsActive reports whether the record's status is "active".
func (r Record) IsActive() bool {
	return r.Status() == StatusActive
}

// Keys returns the record's own keys with "id" first and the rest sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := r["id"]; ok {
		keys = append([]string{"id"}, keys...)
	}
	return keys
}

// Record status values understood by the status endpoints.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// AsID coerces a decoded JSON value into an int64 id.
func AsID(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// IDs collects the ids of the given records, skipping records without one.
func IDs(rows []Record) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		if id, ok := r.ID(); ok {
			out = append(out, id)
		}
	}
	return out
}
