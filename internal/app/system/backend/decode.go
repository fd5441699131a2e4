package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/dalemusser/carehub/internal/domain/models"
)

// decodeList splits a list response into the primary envelope (under the
// plural key) and every other array-valued key as a lookup collection.
func decodeList(plural string, raw map[string]json.RawMessage) (ListResult, error) {
	envRaw, ok := raw[plural]
	if !ok {
		// Some endpoints answer with a bare envelope.
		if _, bare := raw["data"]; bare {
			b, err := json.Marshal(raw)
			if err != nil {
				return ListResult{}, err
			}
			envRaw = b
			raw = nil
		} else {
			return ListResult{}, fmt.Errorf("backend list: response has no %q collection", plural)
		}
	}

	var env models.PageEnvelope
	if err := decodeNumber(envRaw, &env); err != nil {
		return ListResult{}, fmt.Errorf("backend list %s: %w", plural, err)
	}

	res := ListResult{Page: env.Normalize(), Lookups: models.Lookups{}}
	for key, val := range raw {
		if key == plural {
			continue
		}
		var rows []models.Record
		if err := decodeNumber(val, &rows); err != nil {
			// Lookups may also arrive as envelopes; accept their data.
			var nested models.PageEnvelope
			if decodeNumber(val, &nested) != nil || nested.Data == nil {
				continue
			}
			rows = nested.Data
		}
		res.Lookups[key] = rows
	}
	return res, nil
}

// decodeWritten returns the record from a create/update response. Backends
// answer either with the record itself or with { "data": record, ... }.
func decodeWritten(raw map[string]json.RawMessage) (models.Record, error) {
	if data, ok := raw["data"]; ok {
		var rec models.Record
		if err := decodeNumber(data, &rec); err == nil {
			return rec, nil
		}
	}
	rec := models.Record{}
	for k, v := range raw {
		var val any
		if err := decodeNumber(v, &val); err != nil {
			return nil, err
		}
		rec[k] = val
	}
	return rec, nil
}

func decodeNumber(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func filenameFrom(contentDisposition string) string {
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
