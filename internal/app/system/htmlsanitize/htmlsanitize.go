// Package htmlsanitize cleans text that arrives from the backend (error
// messages, import warnings, record values shown in the print view) before
// it is rendered.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	inline = newInlinePolicy()
)

// newInlinePolicy allows the handful of inline tags backends put in
// validation messages.
func newInlinePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "code", "br", "ul", "ol", "li", "p")
	return p
}

// Text strips all markup and returns plain text. Entities produced by the
// sanitizer are decoded so html/template escapes the result exactly once.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Message keeps basic inline formatting and drops everything else.
func Message(s string) template.HTML {
	if s == "" {
		return ""
	}
	return template.HTML(inline.Sanitize(s))
}

// Lines applies Text to every entry and drops the ones left empty.
func Lines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := Text(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
