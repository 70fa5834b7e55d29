/*
Package settlement computes taxes, cast payouts, and the payout rule that
applies to a gift send.

PURPOSE:
  Every yen that leaves the platform as a cast payout, and every yen of
  consumption tax added to a point purchase, is computed here. The functions
  are pure: no I/O, no clock, no logging. The surrounding service loads the
  inputs and persists the outputs verbatim.

KEY CONCEPTS:
  - TaxBreakdown: excl/tax/incl amounts for an order
  - PayoutRule: a revenue-share percent under a scope and date window
  - Resolver: picks the single applicable rule for cast+gift+date
  - Batch: applies the resolver and payout formula to a set of gift sends

ROUNDING:
  All rounding is floor. taxRate and percent are exact decimals, the
  product is computed exactly, and the floor is applied once.

    CalculateTax(1005, 0.10)    -> tax 100, incl 1105
    CalculatePayout(1000, 33.33) -> payout 333

SEE ALSO:
  - rules.go: PayoutRule and ResolvePayoutRule
  - batch.go: Settlement batch computation
  - generic/types.go: Yen and FloorMul
*/
package settlement

import (
	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/generic"
)

// =============================================================================
// TAX
// =============================================================================

// DefaultTaxRate is the standard consumption tax rate.
var DefaultTaxRate = decimal.RequireFromString("0.10")

// TaxBreakdown is the result of CalculateTax.
type TaxBreakdown struct {
	AmountExclTax generic.Yen
	TaxJpy        generic.Yen
	AmountInclTax generic.Yen
}

// CalculateTax returns floor(amountExclTax * taxRate) and the inclusive total.
// taxRate is a fraction (0.10 for 10%). Inputs are not validated; a negative
// amount yields a negative or zero tax.
func CalculateTax(amountExclTax generic.Yen, taxRate decimal.Decimal) TaxBreakdown {
	tax := generic.FloorMul(amountExclTax, taxRate)
	return TaxBreakdown{
		AmountExclTax: amountExclTax,
		TaxJpy:        tax,
		AmountInclTax: amountExclTax + tax,
	}
}

// =============================================================================
// PAYOUT
// =============================================================================

// PayoutResult is the result of CalculatePayout.
type PayoutResult struct {
	PayoutAmount   generic.Yen
	PercentApplied decimal.Decimal
}

// CalculatePayout returns floor(amountExclTax * percentRate / 100).
// percentRate is a percentage (0-100), not a fraction. The shift to a
// fraction is exact, so the floor sees the full product. Zero and negative
// results are returned as-is; the settlement workflow owns that policy.
func CalculatePayout(amountExclTax generic.Yen, percentRate decimal.Decimal) PayoutResult {
	return PayoutResult{
		PayoutAmount:   generic.FloorMul(amountExclTax, percentRate.Shift(-2)),
		PercentApplied: percentRate,
	}
}
