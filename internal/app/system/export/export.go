// Package export serializes list rows to CSV, XLSX and PDF downloads.
//
// CSV and PDF use the resource's ColumnConfig (minus the synthetic actions
// and status columns) and flattened display values, so both produce the
// same header row. XLSX is a full dump whose columns come from the first
// record's own keys.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/domain/models"
)

// ErrEmptyScope rejects an export with no rows in the chosen scope.
var ErrEmptyScope = errors.New("export: nothing to export")

// Format is an output format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// ParseFormat accepts csv, xlsx (or excel) and pdf.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// Scope picks which rows an export covers.
type Scope string

const (
	ScopePage     Scope = "page"
	ScopeAll      Scope = "all"
	ScopeSelected Scope = "selected"
)

// ParseScope defaults to the current page.
func ParseScope(s string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeAll:
		return ScopeAll
	case ScopeSelected:
		return ScopeSelected
	}
	return ScopePage
}

// Filename names a download after its scope and size, e.g.
// selected_categories_7.csv, all_centers_142.xlsx, categories_page_1.pdf.
func Filename(scope Scope, plural string, count, page int, f Format) string {
	switch scope {
	case ScopeSelected:
		return fmt.Sprintf("selected_%s_%d.%s", plural, count, f)
	case ScopeAll:
		return fmt.Sprintf("all_%s_%d.%s", plural, count, f)
	}
	return fmt.Sprintf("%s_page_%d.%s", plural, page, f)
}

// Request describes one export.
type Request struct {
	Def    catalog.Definition
	Format Format
	Scope  Scope
	Page   int
	Rows   []models.Record
}

// Document is a rendered download.
type Document struct {
	Body        []byte
	Filename    string
	ContentType string
	Rows        int
}

// Build renders req. An empty row set fails with ErrEmptyScope before any
// encoder runs.
func Build(req Request) (Document, error) {
	if len(req.Rows) == 0 {
		return Document{}, ErrEmptyScope
	}
	var buf bytes.Buffer
	var err error
	switch req.Format {
	case CSV:
		err = WriteCSV(&buf, req.Def.ExportColumns(), req.Rows)
	case XLSX:
		err = WriteXLSX(&buf, req.Def.Title, req.Rows)
	case PDF:
		err = WritePDF(&buf, req.Def.Title, req.Def.ExportColumns(), req.Rows)
	default:
		err = fmt.Errorf("export: unknown format %q", req.Format)
	}
	if err != nil {
		return Document{}, err
	}
	return Document{
		Body:        buf.Bytes(),
		Filename:    Filename(req.Scope, req.Def.Plural, len(req.Rows), req.Page, req.Format),
		ContentType: req.Format.ContentType(),
		Rows:        len(req.Rows),
	}, nil
}

// Sink receives finished documents.
type Sink interface {
	Save(doc Document) error
}

// ResponseSink writes a document to an HTTP response as an attachment.
type ResponseSink struct {
	W http.ResponseWriter
}

// Save sets the download headers and writes the body.
func (s ResponseSink) Save(doc Document) error {
	h := s.W.Header()
	h.Set("Content-Type", doc.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	h.Set("Content-Length", fmt.Sprint(len(doc.Body)))
	h.Set("Cache-Control", "no-store")
	s.W.WriteHeader(http.StatusOK)
	_, err := s.W.Write(doc.Body)
	return err
}
