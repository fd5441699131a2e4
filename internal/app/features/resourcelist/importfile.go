// internal/app/features/resourcelist/importfile.go
package resourcelist

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/export"
	"github.com/dalemusser/carehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/carehub/internal/app/system/importer"
	"github.com/dalemusser/carehub/internal/app/system/metrics"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// multipart overhead allowed on top of the file ceiling
const formSlack = 1 << 20

// importMessage maps local validation failures to notices.
func (h *Handler) importMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, importer.ErrUnsupportedType):
		return "Only CSV, XLS and XLSX files can be imported.", true
	case errors.Is(err, importer.ErrTooLarge):
		return fmt.Sprintf("The file is larger than %d MB.", h.Imports.MaxBytes>>20), true
	case errors.Is(err, importer.ErrEmptyFile):
		return "The file is empty.", true
	case errors.Is(err, importer.ErrBusy):
		return "An import is already running.", true
	}
	return "", false
}

// HandleImport validates the upload locally and relays it to the backend.
// Rejected files never reach the network.
// POST /admin/{resource}/import
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !sc.Def.Import {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: sc.Def.Title + " cannot be imported."})
		return
	}

	// Refuse before reading the upload when one is already running.
	if h.Imports.Importing(sc.key()) {
		msg, _ := h.importMessage(importer.ErrBusy)
		h.Metrics.Import(sc.Def.Name, metrics.OutcomeRejected)
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashWarning, Message: msg})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Imports.MaxBytes+formSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			msg, _ := h.importMessage(importer.ErrTooLarge)
			h.Metrics.Import(sc.Def.Name, metrics.OutcomeRejected)
			h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: msg})
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse multipart failed", err, "Invalid upload.", sc.Base)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: "Choose a file to import."})
		return
	}
	defer file.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "import "+sc.Def.Name)
	defer cancel()

	res, err := h.Imports.Import(ctx, sc.API, sc.key(), sc.Def.Plural, importer.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        file,
	})
	if msg, local := h.importMessage(err); local {
		h.Metrics.Import(sc.Def.Name, metrics.OutcomeRejected)
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: msg})
		return
	}
	h.AuditLog.Imported(ctx, r, sc.User, sc.Def.Name, hdr.Filename, res, err)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.Log.Warn("import failed", zap.Error(err), zap.String("resource", sc.Def.Name), zap.String("file", hdr.Filename))
		h.Metrics.Import(sc.Def.Name, metrics.OutcomeFailed)
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Import failed.")})
		return
	}
	h.Metrics.Import(sc.Def.Name, metrics.OutcomeOK)

	notices := []auth.Flash{{Kind: auth.FlashSuccess, Message: importer.Summary(res)}}
	if res.HasWarnings() {
		notices = append(notices, auth.Flash{
			Kind:    auth.FlashWarning,
			Message: "Warnings: " + strings.Join(htmlsanitize.Lines(res.Warnings), "; "),
		})
	}
	notices = append(notices, h.refresh(ctx, sc)...)
	h.finish(w, r, sc, false, notices...)
}

// HandleTemplate relays the backend's import template.
// GET /admin/{resource}/import/template
func (h *Handler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !sc.Def.Import {
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: sc.Def.Title + " have no import template."})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "template "+sc.Def.Name)
	defer cancel()

	blob, err := sc.API.DownloadTemplate(ctx, sc.Def.Plural)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.Log.Warn("template download failed", zap.Error(err), zap.String("resource", sc.Def.Name))
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Template download failed.")})
		return
	}
	doc := export.Document{Body: blob.Body, Filename: blob.Filename, ContentType: blob.ContentType}
	if err := (export.ResponseSink{W: w}).Save(doc); err != nil {
		h.Log.Warn("template write failed", zap.Error(err))
	}
}
