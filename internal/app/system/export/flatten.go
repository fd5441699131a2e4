package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/domain/models"
)

// Flatten reduces a decoded JSON value to display text. Arrays join their
// flattened items with ", "; objects reduce to their label, then name,
// then their JSON encoding; nil becomes "".
func Flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			parts = append(parts, Flatten(it))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if s, ok := t["label"]; ok && s != nil {
			return Flatten(s)
		}
		if s, ok := t["name"]; ok && s != nil {
			return Flatten(s)
		}
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	case models.Record:
		return Flatten(map[string]any(t))
	}
	return fmt.Sprint(v)
}

// Headers returns the column labels in order.
func Headers(cols []catalog.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}

// Rows flattens each record's values at the column keys.
func Rows(rows []models.Record, cols []catalog.Column) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = Flatten(r[c.Key])
		}
		out[i] = line
	}
	return out
}
