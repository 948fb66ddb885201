package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"billbook/internal/billcode"
	"billbook/internal/ledger"
	"billbook/internal/store/jsonfile"
	"billbook/pkg/models"
)

// Example demonstrates admitting a bill into a file-backed ledger.
func Example() {
	dir, err := os.MkdirTemp("", "billbook-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()

	cfg := billcode.DefaultConfig()
	cfg.OutputDir = dir
	encoder, err := billcode.NewEncoder(cfg)
	if err != nil {
		log.Fatal(err)
	}

	l, err := ledger.New(ctx, jsonfile.New(filepath.Join(dir, "bills.json")), encoder)
	if err != nil {
		log.Fatal(err)
	}

	bill, err := l.Admit(ctx, "B1", "Alice", []models.Item{
		{Name: "Soap", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
		{Name: "Pen", UnitPrice: decimal.RequireFromString("1.00"), Quantity: 5},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: %s owes %s (%s)\n", bill.ID, bill.CustomerName,
		models.FormatAmount(bill.TotalAmount), filepath.Base(bill.CodeArtifactRef))

	_, err = l.Admit(ctx, "B1", "Alice", bill.Items)
	fmt.Println(errors.Is(err, ledger.ErrDuplicateID))

	// A second ledger over the same file sees the bill.
	reopened, err := ledger.New(ctx, jsonfile.New(filepath.Join(dir, "bills.json")), encoder)
	if err != nil {
		log.Fatal(err)
	}
	for row := range reopened.Report() {
		fmt.Println(row.ID, row.CustomerName, models.FormatAmount(row.TotalAmount))
	}

	// Output:
	// B1: Alice owes 10.00 (bill_B1_Alice.png)
	// true
	// B1 Alice 10.00
}
