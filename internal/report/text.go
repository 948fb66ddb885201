// Package report renders ledger report rows as plain text, PDF and XLSX.
package report

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"time"

	"billbook/pkg/models"
)

// TimeLayout is used for the Date column in every format.
const TimeLayout = time.RFC3339

// WriteText writes the classic bill report:
//
//	Bill Report
//	===========
//	Bill ID: B1
//	Customer: Alice
//	Total: 10.00
//	Date: 2026-10-19T10:00:00Z
//	---
func WriteText(w io.Writer, rows iter.Seq[models.ReportRow]) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "Bill Report\n===========\n")
	for row := range rows {
		fmt.Fprintf(bw, "Bill ID: %s\nCustomer: %s\nTotal: %s\nDate: %s\n---\n",
			row.ID,
			row.CustomerName,
			models.FormatAmount(row.TotalAmount),
			row.CreatedAt.Format(TimeLayout),
		)
	}

	return bw.Flush()
}
