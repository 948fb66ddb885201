package billcode

import (
	"fmt"
	"strings"

	"billbook/pkg/models"
)

// BuildPayload renders the text stored inside a bill's QR code. The layout is
// fixed: identical bill content always yields byte-identical output.
func BuildPayload(bill models.Bill) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Customer Name: %s\n", bill.CustomerName)
	fmt.Fprintf(&b, "Bill ID: %s\n\n", bill.ID)
	b.WriteString("Items:\n")
	for _, item := range bill.Items {
		fmt.Fprintf(&b, "- %s (Price: %s, Quantity: %d)\n",
			item.Name, models.FormatAmount(item.UnitPrice), item.Quantity)
	}
	fmt.Fprintf(&b, "\nTotal: %s", models.FormatAmount(models.ComputeTotal(bill.Items)))

	return b.String()
}
