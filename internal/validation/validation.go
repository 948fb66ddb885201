// Package validation holds the pre-admission checks for candidate bill data.
package validation

import (
	"strings"

	"billbook/pkg/models"
)

// Validate checks candidate bill data in a fixed order and reports only the
// first failure: customer name, id, item presence, then each item's price and
// quantity in sequence.
func Validate(customerName, id string, items []models.Item) error {
	if strings.TrimSpace(customerName) == "" {
		return &ValidationError{Reason: ErrEmptyCustomerName}
	}
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Reason: ErrEmptyID}
	}
	if len(items) == 0 {
		return &ValidationError{Reason: ErrNoItems}
	}

	for _, item := range items {
		if !item.UnitPrice.IsPositive() {
			return InvalidPrice(item.Name)
		}
		if item.Quantity <= 0 {
			return InvalidQuantity(item.Name)
		}
	}

	return nil
}
