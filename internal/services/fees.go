package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kongrex/regdesk/internal/models"
)

// ResolveFee returns the applicable base fee for a registration type in the
// given currency. When the early-bird window is open and the type defines an
// override for that currency, the override wins; otherwise the standard fee.
func ResolveFee(t models.RegistrationType, cur models.Currency, earlyBird bool) (decimal.Decimal, error) {
	var fee decimal.Decimal
	var early decimal.NullDecimal

	switch cur {
	case models.CurrencyTRY:
		fee, early = t.FeeTRY, t.EarlyBirdFeeTRY
	case models.CurrencyUSD:
		fee, early = t.FeeUSD, t.EarlyBirdFeeUSD
	case models.CurrencyEUR:
		fee, early = t.FeeEUR, t.EarlyBirdFeeEUR
	default:
		return decimal.Decimal{}, fmt.Errorf("unknown currency %q", cur)
	}

	if earlyBird && early.Valid {
		return early.Decimal, nil
	}
	return fee, nil
}

// SelectionLine is one priced wizard selection.
type SelectionLine struct {
	CategoryID uint
	TypeID     uint
	Fee        decimal.Decimal
	VAT        decimal.Decimal
	Total      decimal.Decimal
}

// AggregateResult holds the per-item breakdown and the grand total.
type AggregateResult struct {
	Lines      []SelectionLine
	GrandTotal decimal.Decimal
}

// AggregateSelections prices every (category, type) selection: fee via
// ResolveFee, VAT = fee × vat_rate, total = fee + VAT, grand total as the
// sum of line totals. Summation is commutative, but lines are emitted in
// (categoryID, typeID) order so output is deterministic.
//
// earlyBirdByCategory decides the early-bird flag per category; a missing
// entry means the window is closed.
func AggregateSelections(
	selections map[uint][]uint,
	types []models.RegistrationType,
	cur models.Currency,
	earlyBirdByCategory map[uint]bool,
) (AggregateResult, error) {
	typeByID := make(map[uint]models.RegistrationType, len(types))
	for _, t := range types {
		typeByID[t.ID] = t
	}

	catIDs := make([]uint, 0, len(selections))
	for id := range selections {
		catIDs = append(catIDs, id)
	}
	sort.Slice(catIDs, func(i, j int) bool { return catIDs[i] < catIDs[j] })

	var res AggregateResult
	for _, catID := range catIDs {
		typeIDs := append([]uint(nil), selections[catID]...)
		sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })

		for _, typeID := range typeIDs {
			t, ok := typeByID[typeID]
			if !ok {
				return AggregateResult{}, fmt.Errorf("unknown registration type %d", typeID)
			}
			fee, err := ResolveFee(t, cur, earlyBirdByCategory[catID])
			if err != nil {
				return AggregateResult{}, err
			}
			vat := fee.Mul(t.VATRate).Round(2)
			total := fee.Add(vat)

			res.Lines = append(res.Lines, SelectionLine{
				CategoryID: catID,
				TypeID:     typeID,
				Fee:        fee,
				VAT:        vat,
				Total:      total,
			})
			res.GrandTotal = res.GrandTotal.Add(total)
		}
	}
	return res, nil
}
