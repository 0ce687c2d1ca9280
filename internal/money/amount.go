package money

import (
	"github.com/shopspring/decimal"

	"github.com/kongrex/regdesk/internal/models"
)

// FormatAmount renders an amount in its sale currency. TRY gets the full
// Turkish rendering; foreign currencies keep Turkish separators with the ISO
// code as suffix.
func FormatAmount(d decimal.Decimal, c models.Currency) string {
	if c == models.CurrencyTRY || c == "" {
		return FormatTurkishCurrency(d)
	}
	return FormatTurkishNumber(d) + " " + string(c)
}
