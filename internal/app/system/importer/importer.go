// Package importer gates spreadsheet uploads before they reach the backend
// and relays the backend's import summary.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the largest accepted upload (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

// sniffLen is how much of the file is read for content detection.
const sniffLen = 3072

// Accepted upload types.
const (
	TypeCSV  = "text/csv"
	TypeXLS  = "application/vnd.ms-excel"
	TypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var allowedTypes = map[string]bool{TypeCSV: true, TypeXLS: true, TypeXLSX: true}

var allowedExt = map[string]string{".csv": TypeCSV, ".xls": TypeXLS, ".xlsx": TypeXLSX}

// Validation errors. Both are raised before any network call.
var (
	ErrUnsupportedType = errors.New("importer: only CSV, XLS or XLSX files can be imported")
	ErrTooLarge        = errors.New("importer: file exceeds the upload limit")
	ErrEmptyFile       = errors.New("importer: file is empty")
	ErrBusy            = errors.New("importer: an import is already running")
)

// File is an upload as received from the browser.
type File struct {
	Name        string
	ContentType string // as declared by the browser, may be empty
	Size        int64
	Body        io.ReadSeeker
}

// Uploader is the backend import endpoint.
type Uploader interface {
	Import(ctx context.Context, plural, filename, contentType string, r io.Reader) (models.ImportResult, error)
}

// Validate checks size and type and returns the content type to send.
// The declared type and the extension must name an accepted type, and
// the sniffed content must agree with it. Plain text passes as CSV. A
// text .csv file declared as XLS, as browsers with Excel installed do,
// is sent as CSV.
func Validate(f File, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if f.Size > maxBytes {
		return "", fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, f.Size, maxBytes)
	}
	if f.Size == 0 {
		return "", ErrEmptyFile
	}

	declared := declaredType(f)
	if declared == "" {
		return "", ErrUnsupportedType
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("importer: read upload: %w", err)
	}
	if _, err := f.Body.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("importer: rewind upload: %w", err)
	}

	sniffed := mimetype.Detect(head[:n])
	if declared == TypeXLS && isText(sniffed) && strings.EqualFold(filepath.Ext(f.Name), ".csv") {
		return TypeCSV, nil
	}
	if !contentMatches(sniffed, declared) {
		return "", ErrUnsupportedType
	}
	return declared, nil
}

// declaredType resolves the accepted type named by the browser's content
// type or, when that is missing or generic, by the file extension.
func declaredType(f File) string {
	if ct, _, err := mime.ParseMediaType(f.ContentType); err == nil && allowedTypes[ct] {
		return ct
	}
	return allowedExt[strings.ToLower(filepath.Ext(f.Name))]
}

func isText(m *mimetype.MIME) bool {
	return m.Is(TypeCSV) || m.Is("text/plain")
}

func contentMatches(m *mimetype.MIME, declared string) bool {
	switch declared {
	case TypeCSV:
		return isText(m)
	case TypeXLSX:
		return m.Is(TypeXLSX) || m.Is("application/zip")
	case TypeXLS:
		return m.Is(TypeXLS) || m.Is("application/x-ole-storage")
	}
	return false
}

// Engine runs imports and tracks which keys have one in flight.
type Engine struct {
	MaxBytes int64

	mu     sync.Mutex
	active map[string]bool
}

// NewEngine returns an engine with the given ceiling (DefaultMaxBytes when <= 0).
func NewEngine(maxBytes int64) *Engine {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Engine{MaxBytes: maxBytes, active: make(map[string]bool)}
}

// Importing reports whether key has an import in flight.
func (e *Engine) Importing(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[key]
}

// Import validates f and uploads it for plural. Validation failures never
// call up. The in-flight flag for key is cleared on every path.
func (e *Engine) Import(ctx context.Context, up Uploader, key, plural string, f File) (models.ImportResult, error) {
	contentType, err := Validate(f, e.MaxBytes)
	if err != nil {
		return models.ImportResult{}, err
	}

	e.mu.Lock()
	if e.active[key] {
		e.mu.Unlock()
		return models.ImportResult{}, ErrBusy
	}
	e.active[key] = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, key)
		e.mu.Unlock()
	}()

	return up.Import(ctx, plural, filepath.Base(f.Name), contentType, f.Body)
}

// Summary is the success notification text for res.
func Summary(res models.ImportResult) string {
	return fmt.Sprintf("Imported %d, skipped %d.", res.ImportedCount, res.SkippedCount)
}
