// Package export renders the currently filtered view rows into downloadable
// documents. All formats work from the same Table so every export of a page
// carries exactly what the page shows.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// WriteCSV writes the table as RFC4180 CSV, header row first. Quoting and
// escaping are left to encoding/csv.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses a CSV stream produced by WriteCSV back into headers and
// rows, used by the import path and round-trip tests.
func ReadCSV(r io.Reader) (headers []string, rows [][]string, err error) {
	reader := csv.NewReader(r)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

// WritePDF renders the table as a simple one-page-flowing tabular PDF.
func WritePDF(w io.Writer, t Table) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, t.Title)
	pdf.Ln(12)

	colCount := len(t.Headers)
	if colCount == 0 {
		return pdf.Output(w)
	}
	colWidth := 190.0 / float64(colCount)

	pdf.SetFont("Arial", "B", 10)
	for _, header := range t.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, row := range t.Rows {
		for i := 0; i < colCount; i++ {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, 7, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

// WriteXLSX renders the table as a single-sheet workbook.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	for col, header := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build xlsx cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write xlsx header: %w", err)
		}
	}

	for rowIdx, row := range t.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to build xlsx cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write xlsx cell: %w", err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
