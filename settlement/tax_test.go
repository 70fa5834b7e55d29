package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// TAX TESTS
// =============================================================================

func TestCalculateTax_FloorsFractionalYen(t *testing.T) {
	// GIVEN: 1,005 yen at 10%
	// WHEN: Computing the tax
	// THEN: 100.5 is floored to 100 and the total is exact

	got := settlement.CalculateTax(1005, settlement.DefaultTaxRate)

	assert.Equal(t, generic.Yen(1005), got.AmountExclTax)
	assert.Equal(t, generic.Yen(100), got.TaxJpy)
	assert.Equal(t, generic.Yen(1105), got.AmountInclTax)
}

func TestCalculateTax_InclusiveIsExclusivePlusTax(t *testing.T) {
	rates := []string{"0", "0.08", "0.10", "0.333", "1"}
	amounts := []generic.Yen{0, 1, 7, 99, 1234, 999999}

	for _, rs := range rates {
		rate := decimal.RequireFromString(rs)
		for _, a := range amounts {
			got := settlement.CalculateTax(a, rate)
			want := a.Decimal().Mul(rate).Floor().IntPart()

			assert.Equal(t, want, got.TaxJpy.Int64(), "tax of %d at %s", a, rs)
			assert.Equal(t, got.AmountExclTax+got.TaxJpy, got.AmountInclTax)
		}
	}
}

func TestCalculateTax_ReducedRate(t *testing.T) {
	got := settlement.CalculateTax(1250, decimal.RequireFromString("0.08"))

	assert.Equal(t, generic.Yen(100), got.TaxJpy)
	assert.Equal(t, generic.Yen(1350), got.AmountInclTax)
}

func TestCalculateTax_NegativeAmountIsNotRejected(t *testing.T) {
	// Refunds reach the calculator with negative amounts. Floor goes toward
	// negative infinity: -105 * 0.10 = -10.5 -> -11.
	got := settlement.CalculateTax(-105, settlement.DefaultTaxRate)

	assert.Equal(t, generic.Yen(-11), got.TaxJpy)
	assert.Equal(t, generic.Yen(-116), got.AmountInclTax)
}

// =============================================================================
// PAYOUT TESTS
// =============================================================================

func TestCalculatePayout_FractionalPercent(t *testing.T) {
	// GIVEN: 1,000 yen at 33.33%
	// THEN: 333.3 is floored to 333

	got := settlement.CalculatePayout(1000, decimal.RequireFromString("33.33"))

	assert.Equal(t, generic.Yen(333), got.PayoutAmount)
	assert.True(t, decimal.RequireFromString("33.33").Equal(got.PercentApplied))
}

func TestCalculatePayout_HighPrecisionPercentFloorsExactProduct(t *testing.T) {
	// GIVEN: 300 yen at 33.3333333333333334% (more digits than division keeps)
	// THEN: the exact product 100.00000000000000002 floors to 100, not 99

	got := settlement.CalculatePayout(300, decimal.RequireFromString("33.3333333333333334"))

	assert.Equal(t, generic.Yen(100), got.PayoutAmount)
}

func TestCalculatePayout_FullPercentIsExact(t *testing.T) {
	for _, a := range []generic.Yen{0, 1, 333, 1001, 123456789} {
		got := settlement.CalculatePayout(a, decimal.NewFromInt(100))
		assert.Equal(t, a, got.PayoutAmount)
	}
}

func TestCalculatePayout_NeverExceedsBase(t *testing.T) {
	percents := []string{"0", "0.01", "12.5", "33.33", "50", "66.67", "99.99", "100"}
	amounts := []generic.Yen{0, 1, 3, 10, 777, 10000, 98765}

	for _, ps := range percents {
		p := decimal.RequireFromString(ps)
		for _, a := range amounts {
			got := settlement.CalculatePayout(a, p)
			assert.LessOrEqual(t, got.PayoutAmount, a, "payout of %d at %s%%", a, ps)
			assert.GreaterOrEqual(t, got.PayoutAmount, generic.Yen(0))
		}
	}
}

func TestCalculatePayout_ZeroPercent(t *testing.T) {
	got := settlement.CalculatePayout(5000, decimal.Zero)

	assert.Equal(t, generic.Yen(0), got.PayoutAmount)
}
