package export

import (
	"encoding/csv"
	"io"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/domain/models"
)

// WriteCSV writes a header row of column labels and one row per record.
// Values are quoted by the standard CSV rules.
func WriteCSV(w io.Writer, cols []catalog.Column, rows []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers(cols)); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(rows, cols)); err != nil {
		return err
	}
	return cw.Error()
}
