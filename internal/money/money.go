// Package money is the fixed-precision arithmetic layer used by every other
// component. All monetary values are shopspring decimals with 2 fractional
// digits; rounding (half-up) happens exactly once, when a total is finalized.
// Intermediate per-line values are kept at full precision before summation so
// that sum order never changes the final rounded result.
package money

import (
	"github.com/shopspring/decimal"

	"neuriax/internal/apperror"
)

// Scale is the number of fractional digits for the tenant's currency.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Multiply returns quantity × unitPrice at full precision.
// Fails with InvalidAmount for negative quantity or price.
func Multiply(quantity, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity.IsNegative() {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidAmount,
			"quantity must not be negative, got %s", quantity)
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidAmount,
			"unit price must not be negative, got %s", unitPrice)
	}
	return quantity.Mul(unitPrice), nil
}

// ApplyPercentDiscount returns amount × (1 − pct/100) at full precision.
// pct must be within [0,100].
func ApplyPercentDiscount(amount, pct decimal.Decimal) (decimal.Decimal, error) {
	if err := checkPct(pct, "discount"); err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(hundred.Sub(pct)).Div(hundred), nil
}

// ApplyTax returns base × ratePct/100 at full precision.
// ratePct must be within [0,100].
func ApplyTax(base, ratePct decimal.Decimal) (decimal.Decimal, error) {
	if err := checkPct(ratePct, "tax rate"); err != nil {
		return decimal.Zero, err
	}
	return base.Mul(ratePct).Div(hundred), nil
}

// Sum adds amounts at full precision. Order never affects the result.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Finalize rounds to Scale digits. shopspring's Round is half-away-from-zero,
// which is half-up for the non-negative totals produced here. This is the
// ONLY place a monetary value is rounded.
func Finalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

func checkPct(pct decimal.Decimal, what string) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return apperror.Validation(apperror.CodeInvalidAmount,
			"%s percentage must be within [0,100], got %s", what, pct)
	}
	return nil
}
