package report

import (
	"fmt"
	"strings"
)

// FormatAmount renders supply, volume and other large currency amounts with
// two decimal places and thousands separators.
func FormatAmount(v float64) string {
	return addCommas(fmt.Sprintf("%.2f", v))
}

// FormatPrice renders a token price in dollars with four decimal places,
// enough to show sub-cent peg deviations.
func FormatPrice(v float64) string {
	return fmt.Sprintf("$%.4f", v)
}

// FormatPercent renders a percentage with four decimal places.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.4f%%", v)
}

// FormatSignedPercent is FormatPercent with an explicit leading sign.
func FormatSignedPercent(v float64) string {
	return fmt.Sprintf("%+.4f%%", v)
}

// FormatRatio renders a velocity ratio with four decimal places.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func addCommas(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	n := len(intPart)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if len(parts) == 2 {
		b.WriteByte('.')
		b.WriteString(parts[1])
	}
	return b.String()
}
