package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is excelize's sheet name limit.
const maxSheetName = 31

// WriteXLSX writes one sheet whose columns are the first record's keys
// (id first, the rest sorted). Every record is written verbatim under those
// keys, including fields the table hides. Scalars keep their type; nested
// values are stored as JSON text.
func WriteXLSX(w io.Writer, title string, rows []models.Record) error {
	if len(rows) == 0 {
		return ErrEmptyScope
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	keys := rows[0].Keys()
	header := make([]any, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(keys), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		line := make([]any, len(keys))
		for j, k := range keys {
			line[j] = cellValue(r[k])
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	return f.Write(w)
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, bool, float64, int, int64:
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func sheetName(title string) string {
	if title == "" {
		return "Sheet1"
	}
	r := []rune(title)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
