package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a single line on a bill.
type Item struct {
	Name      string          // Item name as printed on the bill
	UnitPrice decimal.Decimal // Price per unit, must be > 0
	Quantity  int64           // Number of units, must be > 0
}

// LineTotal returns UnitPrice × Quantity. It is never stored.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

type Bill struct {
	// Identity
	ID           string // Caller-chosen, unique, compared byte for byte
	CustomerName string // Customer the bill was issued to

	// Content
	Items       []Item          // Ordered line items, at least one
	TotalAmount decimal.Decimal // Sum of line totals, computed at admission

	// Admission metadata
	CreatedAt       time.Time // Assigned by the ledger at admission (UTC)
	CodeArtifactRef string    // Path of the generated QR code image
}

// Clone returns a copy that shares no mutable state with b.
func (b Bill) Clone() Bill {
	out := b
	if b.Items != nil {
		out.Items = make([]Item, len(b.Items))
		copy(out.Items, b.Items)
	}
	return out
}

// ReportRow is the summary line produced for each stored bill.
type ReportRow struct {
	ID           string
	CustomerName string
	TotalAmount  decimal.Decimal
	CreatedAt    time.Time
}

// Row projects a bill onto its report summary.
func (b Bill) Row() ReportRow {
	return ReportRow{
		ID:           b.ID,
		CustomerName: b.CustomerName,
		TotalAmount:  b.TotalAmount,
		CreatedAt:    b.CreatedAt,
	}
}

// ComputeTotal is the only place bill totals are derived.
func ComputeTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// FormatAmount renders an amount with at least two decimal places without
// dropping any precision the value carries ("2.50", "10.00", "0.125").
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}
