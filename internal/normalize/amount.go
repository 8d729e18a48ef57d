// Package normalize turns the heterogeneous strings and numbers a PDF
// extractor hands back into canonical decimal amounts and UTC instants.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount accepts a string or a JSON number (float64/int) and returns a
// canonical, non-negative-by-default decimal. Unparseable input yields
// zero — amounts are never allowed to abort extraction.
func ParseAmount(raw interface{}) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	case string:
		return parseAmountString(v)
	case fmt.Stringer:
		return parseAmountString(v.String())
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	// Strip non-breaking/narrow spaces, apostrophes (digit-grouping marks
	// like 1'234'567,89), and currency letters/symbols — keep only digits,
	// comma, and dot.
	digits := stripNonNumeric(s)
	if digits == "" {
		return decimal.Zero
	}

	decimalSep, lastSepIdx := chooseDecimalSeparator(digits)

	var b strings.Builder
	for i, r := range digits {
		if decimalSep != 0 && i == lastSepIdx {
			b.WriteByte('.')
			continue
		}
		if r == ',' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}

	normalized := b.String()
	if normalized == "" || normalized == "." {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

// stripNonNumeric drops everything except ASCII digits, comma, and dot —
// this implicitly removes spaces (incl. NBSP/narrow-NBSP), apostrophes, and
// any currency letters or symbols.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// chooseDecimalSeparator determines which of ',' or '.' (if either) is the
// decimal point:
//   - both present: the rightmost occurrence is the decimal separator.
//   - exactly one present: it's the decimal separator only when its
//     fractional tail is 1-2 digits and either it's a comma or it occurs
//     exactly once; otherwise it's a thousands separator (dropped).
//
// Returns the separator rune (0 if none) and the byte index of its last
// occurrence in s (meaningful only when the separator is non-zero).
func chooseDecimalSeparator(s string) (rune, int) {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	if lastComma >= 0 && lastDot >= 0 {
		if lastComma > lastDot {
			return ',', lastComma
		}
		return '.', lastDot
	}

	if lastComma >= 0 {
		tail := s[lastComma+1:]
		count := strings.Count(s, ",")
		if len(tail) >= 1 && len(tail) <= 2 {
			return ',', lastComma
		}
		if count == 1 && len(tail) <= 2 {
			return ',', lastComma
		}
		return 0, -1
	}

	if lastDot >= 0 {
		tail := s[lastDot+1:]
		count := strings.Count(s, ".")
		if count == 1 && len(tail) >= 1 && len(tail) <= 2 {
			return '.', lastDot
		}
		return 0, -1
	}

	return 0, -1
}

// FormatAmount renders a decimal using a single locale-stable
// representation: grouped integer thousands, two decimal places, a
// trailing currency tag, thousands separated by a regular ASCII space.
func FormatAmount(d decimal.Decimal, currency string) string {
	rounded := d.Round(2)
	negative := rounded.IsNegative()
	if negative {
		rounded = rounded.Neg()
	}

	whole := rounded.Truncate(0).String()
	frac := rounded.Sub(rounded.Truncate(0)).Abs()
	fracStr := frac.StringFixed(2)[2:] // drop leading "0."

	grouped := groupThousands(whole)

	sign := ""
	if negative {
		sign = "-"
	}
	out := fmt.Sprintf("%s%s,%s", sign, grouped, fracStr)
	if currency != "" {
		out = out + " " + currency
	}
	return out
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var parts []string
	for n > 3 {
		parts = append([]string{digits[n-3 : n]}, parts...)
		n -= 3
	}
	parts = append([]string{digits[:n]}, parts...)
	return strings.Join(parts, " ")
}

// ParseFormattedAmount reverses FormatAmount's rendering — used by the
// amount round-trip test. It expects the comma-decimal, space-grouped
// shape FormatAmount produces, with an optional trailing currency tag.
func ParseFormattedAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, ' ') {
		// Find the numeric prefix: keep consuming space-separated groups of
		// digits until we hit the currency tag (a non-numeric token).
		fields := strings.Fields(s)
		var numeric strings.Builder
		for _, f := range fields {
			if isNumericGroup(f) {
				numeric.WriteString(f)
			} else {
				break
			}
		}
		if numeric.Len() > 0 {
			return parseAmountString(numeric.String())
		}
	}
	return parseAmountString(s)
}

func isNumericGroup(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != ',' && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

// mustParseDecimal is a small helper used by tests to build expected values
// without swallowing construction errors silently.
func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
