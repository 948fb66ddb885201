// Package input parses item lists supplied on the command line.
package input

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"billbook/pkg/models"
)

// ErrMalformedItems is returned when an item list cannot be parsed.
var ErrMalformedItems = errors.New("malformed item list")

// price keeps the literal text of a YAML or JSON number.
type price struct {
	decimal.Decimal
}

func (p *price) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a number", node.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: price %q is not a number", node.Line, node.Value)
	}
	p.Decimal = d
	return nil
}

type rawItem struct {
	Name     *string `yaml:"name"`
	Price    *price  `yaml:"price"`
	Quantity *int64  `yaml:"quantity"`
}

// ParseItems reads a list of {name, price, quantity} objects in JSON or YAML.
// Prices keep the exact decimal text they were written with. Range checks
// are left to validation.
func ParseItems(r io.Reader) ([]models.Item, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw []rawItem
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedItems, err)
	}

	items := make([]models.Item, 0, len(raw))
	for i, ri := range raw {
		switch {
		case ri.Name == nil:
			return nil, fmt.Errorf("%w: item %d has no name", ErrMalformedItems, i+1)
		case ri.Price == nil:
			return nil, fmt.Errorf("%w: item %q has no price", ErrMalformedItems, *ri.Name)
		case ri.Quantity == nil:
			return nil, fmt.Errorf("%w: item %q has no quantity", ErrMalformedItems, *ri.Name)
		}
		items = append(items, models.Item{
			Name:      *ri.Name,
			UnitPrice: ri.Price.Decimal,
			Quantity:  *ri.Quantity,
		})
	}

	return items, nil
}

// ParseItemFlag parses "name:price:quantity". The name may itself contain
// colons; price and quantity are taken from the end.
func ParseItemFlag(s string) (models.Item, error) {
	q := strings.LastIndex(s, ":")
	if q < 0 {
		return models.Item{}, fmt.Errorf("%w: %q is not name:price:quantity", ErrMalformedItems, s)
	}
	p := strings.LastIndex(s[:q], ":")
	if p < 0 {
		return models.Item{}, fmt.Errorf("%w: %q is not name:price:quantity", ErrMalformedItems, s)
	}

	name, priceText, qtyText := s[:p], s[p+1:q], s[q+1:]

	unitPrice, err := decimal.NewFromString(strings.TrimSpace(priceText))
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: price %q in %q is not a number", ErrMalformedItems, priceText, s)
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(qtyText), 10, 64)
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: quantity %q in %q is not an integer", ErrMalformedItems, qtyText, s)
	}

	return models.Item{Name: name, UnitPrice: unitPrice, Quantity: qty}, nil
}
