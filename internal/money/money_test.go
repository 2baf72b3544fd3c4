package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMultiply(t *testing.T) {
	got, err := Multiply(d("2"), d("50"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("100")), "got %s", got)

	// fractional quantity keeps full precision
	got, err = Multiply(d("1.5"), d("33.33"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("49.995")), "got %s", got)
}

func TestMultiplyRejectsNegatives(t *testing.T) {
	_, err := Multiply(d("-1"), d("10"))
	require.Error(t, err)

	_, err = Multiply(d("1"), d("-10"))
	require.Error(t, err)
}

func TestApplyPercentDiscount(t *testing.T) {
	got, err := ApplyPercentDiscount(d("100"), d("10"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("90")), "got %s", got)

	// 0% and 100% are valid edges
	got, err = ApplyPercentDiscount(d("100"), d("0"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("100")))

	got, err = ApplyPercentDiscount(d("100"), d("100"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestApplyPercentDiscountRange(t *testing.T) {
	_, err := ApplyPercentDiscount(d("100"), d("-1"))
	require.Error(t, err)

	_, err = ApplyPercentDiscount(d("100"), d("100.01"))
	require.Error(t, err)
}

func TestApplyTax(t *testing.T) {
	got, err := ApplyTax(d("90"), d("21"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("18.9")), "got %s", got)
}

func TestSumOrderInvariance(t *testing.T) {
	a := []decimal.Decimal{d("0.105"), d("0.105"), d("0.105")}
	b := []decimal.Decimal{a[2], a[0], a[1]}

	sumA := Finalize(Sum(a...))
	sumB := Finalize(Sum(b...))
	assert.True(t, sumA.Equal(sumB))
	// 0.315 rounds half-up to 0.32 once, at finalization
	assert.True(t, sumA.Equal(d("0.32")), "got %s", sumA)
}

func TestFinalizeHalfUp(t *testing.T) {
	assert.True(t, Finalize(d("2.345")).Equal(d("2.35")))
	assert.True(t, Finalize(d("2.344")).Equal(d("2.34")))
	assert.True(t, Finalize(d("2.005")).Equal(d("2.01")))
}

func TestTaxRates(t *testing.T) {
	rate, err := TaxRate("general")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("21")))

	rate, err = TaxRate("exento")
	require.NoError(t, err)
	assert.True(t, rate.IsZero())

	_, err = TaxRate("bogus")
	require.Error(t, err)
}
