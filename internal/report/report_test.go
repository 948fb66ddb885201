package report

import (
	"bytes"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"billbook/pkg/models"
)

func rows() iter.Seq[models.ReportRow] {
	return slices.Values([]models.ReportRow{
		{
			ID:           "B1",
			CustomerName: "Alice",
			TotalAmount:  decimal.RequireFromString("10.00"),
			CreatedAt:    time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:           "B2",
			CustomerName: "Bob",
			TotalAmount:  decimal.RequireFromString("3.5"),
			CreatedAt:    time.Date(2026, 10, 19, 11, 15, 0, 0, time.UTC),
		},
	})
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, rows()))

	want := "Bill Report\n===========\n" +
		"Bill ID: B1\nCustomer: Alice\nTotal: 10.00\nDate: 2026-10-19T10:00:00Z\n---\n" +
		"Bill ID: B2\nCustomer: Bob\nTotal: 3.50\nDate: 2026-10-19T11:15:00Z\n---\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, slices.Values([]models.ReportRow(nil))))
	assert.Equal(t, "Bill Report\n===========\n", buf.String())
}

func TestBuildPDF(t *testing.T) {
	data, err := BuildPDF(rows(), time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestBuildXLSX(t *testing.T) {
	data, err := BuildXLSX(rows())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Headers, got[0])
	assert.Equal(t, "B1", got[1][0])
	assert.Equal(t, "Alice", got[1][1])
	assert.Equal(t, "10", got[1][2])
	assert.Equal(t, "2026-10-19T11:15:00Z", got[2][3])
}

func TestWriteXLSXRowReportsCellErrors(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	row := models.ReportRow{
		ID:           "B1",
		CustomerName: "Alice",
		TotalAmount:  decimal.NewFromInt(1),
		CreatedAt:    time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}

	err := writeXLSXRow(f, "no such sheet", 2, row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bill B1")

	require.NoError(t, writeXLSXRow(f, "Sheet1", 2, row))
	got, err := f.GetCellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got)
}
