package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmountString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain integer", "500000", "500000"},
		{"thousands space", "1 234 567,89", "1234567.89"},
		{"dot decimal", "1234.56", "1234.56"},
		{"comma decimal single", "1234,56", "1234.56"},
		{"comma thousands dot decimal", "1,234,567.89", "1234567.89"},
		{"dot thousands comma decimal", "1.234.567,89", "1234567.89"},
		{"parenthesized negative", "(1 200 000)", "-1200000"},
		{"leading minus", "-750000", "-750000"},
		{"currency symbol", "₹500 000.00", "500000.00"},
		{"nbsp thousands", "1 200 000", "1200000"},
		{"apostrophe grouping", "1'234'567,89", "1234567.89"},
		{"unparseable", "n/a", "0"},
		{"empty", "", "0"},
		{"dot as thousands only", "1.234.567", "1234567"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := parseAmountString(c.in)
			want := mustParseDecimal(c.want)
			require.True(t, want.Equal(got), "parseAmountString(%q) = %s, want %s", c.in, got, want)
		})
	}
}

func TestParseAmountNumeric(t *testing.T) {
	require.True(t, mustParseDecimal("1200000").Equal(ParseAmount(float64(1200000))))
	require.True(t, mustParseDecimal("0").Equal(ParseAmount(nil)))
}

func TestFormatAmountRoundTrip(t *testing.T) {
	d := mustParseDecimal("1234567.89")
	formatted := FormatAmount(d, "KZT")
	require.Equal(t, "1 234 567,89 KZT", formatted)

	back := ParseFormattedAmount(formatted)
	require.True(t, d.Equal(back), "round trip mismatch: %s vs %s", d, back)
}

func TestFormatAmountSmall(t *testing.T) {
	require.Equal(t, "0,00", FormatAmount(mustParseDecimal("0"), ""))
	require.Equal(t, "-50,00", FormatAmount(mustParseDecimal("-50"), ""))
}
