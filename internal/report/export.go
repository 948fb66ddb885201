package report

import (
	"bytes"
	"fmt"
	"iter"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"billbook/pkg/models"
)

// SheetName is the worksheet that holds the rows in XLSX exports.
const SheetName = "bills"

// Headers are the column titles shared by the tabular exports.
var Headers = []string{"Bill ID", "Customer", "Total", "Date"}

// BuildPDF renders the rows as a single-table A4 document.
func BuildPDF(rows iter.Seq[models.ReportRow], generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Bill Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(TimeLayout)))
	pdf.Ln(8)

	widths := []float64{35, 60, 30, 55}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range Headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	count := 0
	grand := decimal.Zero
	for row := range rows {
		pdf.CellFormat(widths[0], 6, row.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, row.CustomerName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, models.FormatAmount(row.TotalAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, row.CreatedAt.Format(TimeLayout), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		grand = grand.Add(row.TotalAmount)
		count++
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Bills: %d    Grand total: %s", count, models.FormatAmount(grand)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders the rows into one worksheet with a header row. Amounts
// are written as numbers so the sheet can sum them.
func BuildXLSX(rows iter.Seq[models.ReportRow]) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}

	r := 2
	for row := range rows {
		if err := writeXLSXRow(f, SheetName, r, row); err != nil {
			return nil, err
		}
		r++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXLSXRow(f *excelize.File, sheet string, r int, row models.ReportRow) error {
	cells := []interface{}{
		row.ID,
		row.CustomerName,
		row.TotalAmount.InexactFloat64(),
		row.CreatedAt.Format(TimeLayout),
	}
	for c, v := range cells {
		cell, err := excelize.CoordinatesToCellName(c+1, r)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("bill %s: %w", row.ID, err)
		}
	}
	return nil
}
