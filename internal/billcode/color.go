package billcode

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor accepts a CSS colour name ("black", "navy") or a hex value
// ("#1e90ff", "#fff").
func ParseColor(s string) (color.Color, error) {
	value := strings.ToLower(strings.TrimSpace(s))

	if c, ok := colornames.Map[value]; ok {
		return c, nil
	}

	if !strings.HasPrefix(value, "#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	hex := value[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	return color.RGBA{
		R: uint8(rgb >> 16),
		G: uint8(rgb >> 8),
		B: uint8(rgb),
		A: 0xff,
	}, nil
}
