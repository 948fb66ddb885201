package input

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemsJSON(t *testing.T) {
	items, err := ParseItems(strings.NewReader(`[{"name": "Soap", "price": 2.50, "quantity": 2}, {"name": "Pen", "price": 1.00, "quantity": 5}]`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Soap", items[0].Name)
	assert.Equal(t, "2.5", items[0].UnitPrice.String())
	assert.Equal(t, int32(-2), items[0].UnitPrice.Exponent(), "source precision is kept")
	assert.Equal(t, int64(2), items[0].Quantity)
	assert.Equal(t, "Pen", items[1].Name)
}

func TestParseItemsYAML(t *testing.T) {
	src := `
- name: Soap
  price: 0.1
  quantity: 3
- name: "Tea: green"
  price: "4.20"
  quantity: 1
`
	items, err := ParseItems(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "0.3", items[0].LineTotal().String(), "no float rounding")
	assert.Equal(t, "Tea: green", items[1].Name)
	assert.Equal(t, "4.2", items[1].UnitPrice.String())
}

func TestParseItemsKeepsInvalidRangesForValidation(t *testing.T) {
	items, err := ParseItems(strings.NewReader(`[{"name": "X", "price": 0, "quantity": -1}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.IsZero())
	assert.Equal(t, int64(-1), items[0].Quantity)
}

func TestParseItemsEmpty(t *testing.T) {
	items, err := ParseItems(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseItemsMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not a list", `{"name": "Soap"}`},
		{"missing price", `[{"name": "Soap", "quantity": 1}]`},
		{"missing name", `[{"price": 1, "quantity": 1}]`},
		{"missing quantity", `[{"name": "Soap", "price": 1}]`},
		{"price not a number", `[{"name": "Soap", "price": "cheap", "quantity": 1}]`},
		{"fractional quantity", `[{"name": "Soap", "price": 1, "quantity": 1.5}]`},
		{"unknown field", `[{"name": "Soap", "price": 1, "quantity": 1, "colour": "red"}]`},
		{"broken syntax", `[{"name": "Soap"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItems(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, ErrMalformedItems)
		})
	}
}

func TestParseItemFlag(t *testing.T) {
	item, err := ParseItemFlag("Soap:2.50:2")
	require.NoError(t, err)
	assert.Equal(t, "Soap", item.Name)
	assert.Equal(t, "2.5", item.UnitPrice.String())
	assert.Equal(t, int64(2), item.Quantity)

	item, err = ParseItemFlag("Tea: green:4:1")
	require.NoError(t, err)
	assert.Equal(t, "Tea: green", item.Name)

	for _, bad := range []string{"Soap", "Soap:2", "Soap:x:1", "Soap:1:two"} {
		_, err := ParseItemFlag(bad)
		assert.ErrorIs(t, err, ErrMalformedItems, bad)
	}
}
