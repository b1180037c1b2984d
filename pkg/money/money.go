// Package money parses and formats the display convention used by the ledger
// document: amounts travel as strings with comma thousands separators on the
// read path and as bare numeric strings on mutation payloads. All arithmetic
// happens on decimals; the string forms exist only at the wire and cell
// boundaries.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a cell or payload value into a decimal, accepting both the
// display form ("1,234.5") and the bare numeric form ("1234.5").
func Parse(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// Format renders a decimal in the display form: comma thousands separators,
// at most two fractional digits, no trailing fractional zeros.
func Format(d decimal.Decimal) string {
	rounded := d.Round(2)
	s := rounded.String()

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
