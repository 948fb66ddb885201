package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/billcode"
	"billbook/internal/ledger"
	"billbook/internal/validation"
	"billbook/pkg/models"
)

// resetFlags returns every flag of c and its children to its default so
// consecutive executions in one test binary do not leak values.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LEDGER_BACKEND", "file")
	t.Setenv("LEDGER_STORE_PATH", filepath.Join(dir, "bills.json"))
	t.Setenv("QR_OUTPUT_DIR", dir)
	t.Setenv("QR_FOREGROUND", "")
	t.Setenv("QR_BACKGROUND", "")
	t.Setenv("QR_SIZE", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_FROM", "")
	t.Setenv("METRICS_FILE", "")
	return dir
}

func TestAddShowReport(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "add", "--id", "B1", "--customer", "Alice",
		"--items", `[{"name": "Soap", "price": 2.50, "quantity": 2}, {"name": "Pen", "price": 1.00, "quantity": 5}]`)
	require.NoError(t, err)

	var added BillOutput
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, "B1", added.ID)
	assert.Equal(t, json.Number("10.00"), added.TotalAmount)
	assert.Equal(t, filepath.Join(dir, "bill_B1_Alice.png"), added.QRCodePath)
	assert.FileExists(t, added.QRCodePath)

	out, err = execute(t, "show", "B1")
	require.NoError(t, err)
	var shown BillOutput
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, added.ID, shown.ID)
	assert.Equal(t, added.TotalAmount, shown.TotalAmount)
	assert.True(t, added.CreatedAt.Equal(shown.CreatedAt))

	_, err = execute(t, "add", "--id", "B2", "--customer", "Bob", "--item", "Tea:3.20:1", "--item", "Cake:1.40:2")
	require.NoError(t, err)

	out, err = execute(t, "report")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Bill Report\n===========\nBill ID: B1\nCustomer: Alice\nTotal: 10.00\n"))
	assert.Contains(t, out, "Bill ID: B2\nCustomer: Bob\nTotal: 6.00\n")
	assert.Less(t, strings.Index(out, "B1"), strings.Index(out, "B2"))
}

func TestAddDuplicateAndInvalid(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "add", "--id", "B1", "--customer", "Alice", "--item", "Soap:2.50:2")
	require.NoError(t, err)

	_, err = execute(t, "add", "--id", "B1", "--customer", "Eve", "--item", "Gold:100:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bill ID 'B1' already exists")

	_, err = execute(t, "add", "--id", "B3", "--customer", "Alice", "--item", "X:0:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bill")

	out, err := execute(t, "show", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, `"customer_name": "Alice"`)

	_, err = execute(t, "show", "B3")
	assert.EqualError(t, err, "bill not found: B3")
}

func TestReportFormatsAndMetrics(t *testing.T) {
	dir := setupEnv(t)
	metricsPath := filepath.Join(dir, "billbook.prom")

	_, err := execute(t, "add", "--id", "B1", "--customer", "Alice", "--item", "Soap:2.50:2",
		"--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `billbook_admissions_total{result="admitted"} 1`)

	pdfPath := filepath.Join(dir, "bills.pdf")
	_, err = execute(t, "report", "--format", "pdf", "-o", pdfPath)
	require.NoError(t, err)
	assert.FileExists(t, pdfPath)

	_, err = execute(t, "report", "--format", "csv")
	assert.Error(t, err)
}

func TestCorruptLedgerIsReported(t *testing.T) {
	setupEnv(t)
	require.NoError(t, os.WriteFile(os.Getenv("LEDGER_STORE_PATH"), []byte("{not json"), 0o644))

	_, err := execute(t, "show", "B1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrStoreCorrupt))
	assert.Contains(t, err.Error(), "corrupt")
}

func TestReadItemsRejectsMixedSources(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "add", "--id", "B1", "--customer", "Alice", "--items", "[]", "--item", "Soap:1:1")
	assert.EqualError(t, err, "use only one of --items, --items-file and --item")
}

func TestHandleAdmitError(t *testing.T) {
	log := zerolog.Nop()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", validation.InvalidPrice("X"), "invalid bill"},
		{"duplicate", &ledger.DuplicateIDError{ID: "B1"}, "already exists"},
		{"too large", billcode.NewEncodingError("Encode", billcode.ErrPayloadTooLarge, ""), "too large to fit in a QR code"},
		{"persistence", &ledger.Error{Op: "Admit", Kind: ledger.ErrPersistence, Err: errors.New("disk full")}, "safe to retry"},
		{"timeout", &ledger.Error{Op: "Admit", Kind: ledger.ErrPersistence, Err: context.DeadlineExceeded}, "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleAdmitError(tt.err, "B1", log)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConvertToBillOutput(t *testing.T) {
	bill := models.Bill{
		ID:           "B1",
		CustomerName: "Alice",
		Items: []models.Item{
			{Name: "Screw", UnitPrice: decimal.RequireFromString("0.125"), Quantity: 3},
		},
		TotalAmount:     decimal.RequireFromString("0.375"),
		CreatedAt:       time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		CodeArtifactRef: "bill_B1_Alice.png",
	}

	out := convertToBillOutput(bill)
	assert.Equal(t, json.Number("0.375"), out.TotalAmount)
	require.Len(t, out.Items, 1)
	assert.Equal(t, json.Number("0.125"), out.Items[0].Price)
	assert.Equal(t, json.Number("0.375"), out.Items[0].LineTotal)
}
