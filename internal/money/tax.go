package money

import (
	"github.com/shopspring/decimal"

	"neuriax/internal/apperror"
)

// Spanish IVA rate codes. Tenant-level custom tables are out of scope —
// every tenant bills against this fixed table.
var taxRates = map[string]decimal.Decimal{
	"general":       decimal.NewFromInt(21),
	"reducido":      decimal.NewFromInt(10),
	"superreducido": decimal.NewFromInt(4),
	"exento":        decimal.Zero,
}

// TaxRate resolves a rate code to its percentage.
func TaxRate(code string) (decimal.Decimal, error) {
	rate, ok := taxRates[code]
	if !ok {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidAmount,
			"unknown tax rate code %q", code)
	}
	return rate, nil
}
