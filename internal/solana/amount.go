package solana

import (
	"fmt"
	"strconv"
	"strings"
)

// LamportsPerSOL is the smallest-unit scale of the native token.
const LamportsPerSOL = 1_000_000_000

// FormatAmount renders a smallest-unit amount with the given decimals.
func FormatAmount(amount uint64, decimals uint8) string {
	divisor := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		divisor *= 10
	}

	whole := amount / divisor
	fraction := amount % divisor
	if fraction == 0 {
		return strconv.FormatUint(whole, 10)
	}
	return fmt.Sprintf("%d.%0*d", whole, decimals, fraction)
}

// ParseAmount parses a decimal string into smallest units.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	parts := strings.Split(s, ".")

	scale := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}

	switch len(parts) {
	case 1:
		whole, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
		return whole * scale, nil
	case 2:
		whole, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
		fracStr := parts[1]
		if len(fracStr) > int(decimals) {
			return 0, fmt.Errorf("parse amount %q: too many decimal places", s)
		}
		for len(fracStr) < int(decimals) {
			fracStr += "0"
		}
		fraction, err := strconv.ParseUint(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
		return whole*scale + fraction, nil
	default:
		return 0, fmt.Errorf("parse amount %q: malformed", s)
	}
}
