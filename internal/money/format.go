package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// groupThousands inserts "." thousands separators into a plain digit string.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(n + n/3)
	lead := n % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatTurkishNumber renders d with Turkish separators and two decimals:
// 9500 -> "9.500,00". Amounts are rounded to the nearest kuruş first.
func FormatTurkishNumber(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	out := groupThousands(intPart) + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// FormatTurkishCurrency renders "9.500,00 TL" style amounts.
func FormatTurkishCurrency(d decimal.Decimal) string {
	return FormatTurkishNumber(d) + " TL"
}

// FormatTurkishCurrencyWhole drops the decimals: "9.500 TL".
func FormatTurkishCurrencyWhole(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	out := groupThousands(s)
	if neg {
		out = "-" + out
	}
	return out + " TL"
}

// FormatTurkishCurrencyCompact abbreviates large amounts:
// 9.500 -> "9,5 Bin TL", 2.400.000 -> "2,4 Milyon TL". Below a thousand it
// falls back to the full rendering.
func FormatTurkishCurrencyCompact(d decimal.Decimal) string {
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(million):
		return compactPart(d.Div(million)) + " Milyon TL"
	case abs.GreaterThanOrEqual(thousand):
		return compactPart(d.Div(thousand)) + " Bin TL"
	default:
		return FormatTurkishCurrency(d)
	}
}

func compactPart(d decimal.Decimal) string {
	s := d.Round(1).StringFixed(1)
	s = strings.TrimSuffix(s, ".0")
	return strings.ReplaceAll(s, ".", ",")
}
