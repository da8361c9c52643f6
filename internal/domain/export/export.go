// Package export renders SAP journal rows as downloadable files. The
// Excel writer produces the workbook the accounting team imports into
// SAP Business One; CSV is offered as a lighter alternative for review.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/quangtd/invoice2sap/internal/domain/transform"
)

const sheetName = "Journal Entries"

// Columns holding amounts. These are written as numbers so SAP's import
// wizard does not reject text cells; everything else stays text.
var numericColumns = map[int]bool{
	3:  true, // Credit
	4:  true, // Debit (SC)
	5:  true, // Credit (SC)
	12: true, // Tax Amount
	13: true, // Gross Value
	14: true, // Base Amount
	19: true, // Debit USD S1
	20: true, // Credit USD S1
}

// Excel renders rows as an XLSX workbook. An empty row set still
// produces a valid workbook with the header row, so a batch where every
// file failed parsing downloads cleanly.
func Excel(rows []transform.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := transform.Headers()
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("resolve last column: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header row: %w", err)
	}

	for i := range rows {
		cells := rowCells(&rows[i])
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// CSV renders rows as UTF-8 CSV with the same columns as the workbook.
func CSV(rows []transform.Row) ([]byte, error) {
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return out, nil
}

// Filename builds a timestamped download name, e.g.
// "sap_journal_20241205_143000.xlsx".
func Filename(ext string, now time.Time) string {
	return fmt.Sprintf("sap_journal_%s.%s", now.Format("20060102_150405"), ext)
}

// rowCells converts a row into cell values, parsing amount columns into
// numbers and leaving blanks empty.
func rowCells(r *transform.Row) []any {
	values := r.Values()
	cells := make([]any, len(values))
	for i, v := range values {
		if numericColumns[i] && v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cells[i] = n
				continue
			}
		}
		cells[i] = v
	}
	return cells
}
