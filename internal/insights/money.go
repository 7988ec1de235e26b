package insights

import (
	"fmt"
	"math"
	"strings"
)

// formatMoney renders a dollar amount with thousands separators and two
// decimal places, e.g. 1234.5 -> "1,234.50". Negative values keep their
// sign in front of the grouped digits.
func formatMoney(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	fmt.Fprintf(&b, ".%02d", frac)
	return b.String()
}

// round2 rounds to two decimal places for amounts that cross an API
// boundary as computed values.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
