package export

import (
	"fmt"
	"io"
	"time"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/go-pdf/fpdf"
)

const (
	pdfRowHeight   = 7.0
	pdfTitleHeight = 10.0
	pdfFontSize    = 9.0
)

var (
	pdfHeaderFill = [3]int{41, 98, 155}
	pdfStripeFill = [3]int{240, 244, 248}
)

// WritePDF writes a landscape table titled title. The header row is filled
// and body rows alternate shading. Columns share the printable width.
func WritePDF(w io.Writer, title string, cols []catalog.Column, rows []models.Record) error {
	if len(cols) == 0 {
		return fmt.Errorf("export: no columns for %q", title)
	}
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("carehub", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(cols))
	headers := Headers(cols)

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
		pdf.SetTextColor(255, 255, 255)
		for _, h := range headers {
			pdf.CellFormat(colW, pdfRowHeight, tr(fit(pdf, h, colW)), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, pdfTitleHeight, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for i, line := range Rows(rows, cols) {
		stripe := i%2 == 1
		if stripe {
			pdf.SetFillColor(pdfStripeFill[0], pdfStripeFill[1], pdfStripeFill[2])
		}
		for _, v := range line {
			pdf.CellFormat(colW, pdfRowHeight, tr(fit(pdf, v, colW)), "1", 0, "L", stripe, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// fit truncates s with an ellipsis so it fits in a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
