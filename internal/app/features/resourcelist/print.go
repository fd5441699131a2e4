// internal/app/features/resourcelist/print.go
package resourcelist

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/export"
	"github.com/dalemusser/carehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/carehub/internal/app/system/metrics"
	"github.com/dalemusser/carehub/internal/app/system/printer"
	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"github.com/dalemusser/carehub/internal/domain/models"
	"go.uber.org/zap"
)

//go:embed printview/*.gohtml
var printFS embed.FS

// The print view is rendered to a buffer before anything is written, so
// it is parsed here rather than through the page engine.
var printTmpl = template.Must(template.ParseFS(printFS, "printview/*.gohtml"))

type printData struct {
	SiteName string
	Title    string
	Printed  string
	JobID    string
	Count    int
	Headers  []string
	Rows     [][]string
	Back     string
}

// pageSurface stages a job by rendering the print view into a buffer and
// prints it by writing that buffer to the response.
type pageSurface struct {
	w    http.ResponseWriter
	cols []catalog.Column
	back string
	now  func() time.Time
	buf  bytes.Buffer
}

func (s *pageSurface) Stage(job printer.Job) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		s.buf.Reset()
		done <- renderPrint(&s.buf, printData{
			SiteName: models.DefaultSiteName,
			Title:    job.Title,
			Printed:  s.now().Format("2006-01-02 15:04"),
			JobID:    job.ID,
			Count:    len(job.Rows),
			Headers:  export.Headers(s.cols),
			Rows:     printRows(job.Rows, s.cols),
			Back:     s.back,
		})
	}()
	return done
}

func (s *pageSurface) Print(ctx context.Context, job printer.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.w.Header().Set("Cache-Control", "no-store")
	_, err := s.w.Write(s.buf.Bytes())
	s.buf.Reset()
	return err
}

// printRows flattens recs like the exports do and strips any markup the
// backend stored in a value.
func printRows(recs []models.Record, cols []catalog.Column) [][]string {
	rows := export.Rows(recs, cols)
	for _, row := range rows {
		for i, cell := range row {
			row[i] = htmlsanitize.Text(cell)
		}
	}
	return rows
}

func renderPrint(w io.Writer, data printData) error {
	return printTmpl.ExecuteTemplate(w, "resourcelist_print", data)
}

// ServePrint fetches every row of the current query, stages the print
// view and returns it; the page opens the print dialog on load.
// GET /admin/{resource}/print
func (h *Handler) ServePrint(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolve(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "print "+sc.Def.Name)
	defer cancel()

	q := sc.Ctl.Query()
	var rows int
	fetch := func(ctx context.Context) ([]models.Record, error) {
		recs, err := sc.API.ListAll(ctx, sc.Def.Plural, fullParams(q), backend.AllRows)
		rows = len(recs)
		return recs, err
	}
	surface := &pageSurface{w: w, cols: sc.Def.ExportColumns(), back: sc.Base, now: time.Now}

	err := h.Prints.Run(ctx, sc.key(), sc.Def.Title, fetch, surface)
	switch {
	case err == nil:
		h.Metrics.Print(sc.Def.Name, metrics.OutcomeOK)
		h.AuditLog.Printed(ctx, r, sc.User, sc.Def.Name, rows, nil)
		return
	case errors.Is(err, printer.ErrNothingToPrint):
		h.Metrics.Print(sc.Def.Name, metrics.OutcomeRejected)
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashWarning, Message: "There are no records to print."})
		return
	case errors.Is(err, printer.ErrBusy):
		h.Metrics.Print(sc.Def.Name, metrics.OutcomeRejected)
		h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashWarning, Message: "A print is already being prepared."})
		return
	}

	h.Metrics.Print(sc.Def.Name, metrics.OutcomeFailed)
	h.AuditLog.Printed(ctx, r, sc.User, sc.Def.Name, rows, err)
	if h.sessionExpired(w, r, err) {
		return
	}
	h.Log.Warn("print failed", zap.Error(err), zap.String("resource", sc.Def.Name))
	h.finish(w, r, sc, false, auth.Flash{Kind: auth.FlashError, Message: backend.UserMessage(err, "Print failed.")})
}
