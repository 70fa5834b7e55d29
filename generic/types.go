/*
Package generic provides the shared vocabulary of the concierge engine.

PURPOSE:
  This package contains the domain-agnostic building blocks used by the
  settlement, points, and inbox packages: typed identifiers, money in the
  smallest currency unit, calendar dates, and the error catalogue.

KEY CONCEPTS IN THIS FILE (types.go):
  - Yen: An integer amount in the smallest currency unit (no sub-units)
  - FloorMul: The single rounding rule of the system (always floor)
  - Entity IDs: Type-safe identifiers for users, casts, gifts, and rules

DESIGN PRINCIPLES:
  1. Integers for money: amounts never carry fractional units
  2. Precision: rates and percents are decimal.Decimal, never float64
  3. Floor only: the platform never over-charges or over-pays a fraction
  4. Type Safety: strong typing for IDs prevents mixing cast/user/gift IDs

USAGE:
  tax := generic.FloorMul(generic.Yen(1000), decimal.RequireFromString("0.10"))
  // tax == 100

SEE ALSO:
  - time.go: Date and business-day helpers
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer amounts in the smallest currency unit
// =============================================================================

// Yen is an amount in the smallest currency unit.
type Yen int64

// Decimal returns the amount as an exact decimal.
func (y Yen) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(y)) }

func (y Yen) Int64() int64      { return int64(y) }
func (y Yen) IsNegative() bool  { return y < 0 }
func (y Yen) String() string    { return strconv.FormatInt(int64(y), 10) }
func (y Yen) Add(other Yen) Yen { return y + other }

// FloorMul multiplies an amount by a factor and floors the exact product.
// Floor is toward negative infinity, so negative amounts round away from zero.
func FloorMul(amount Yen, factor decimal.Decimal) Yen {
	return Yen(amount.Decimal().Mul(factor).Floor().IntPart())
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type CastID string
type GiftID string
type RuleID string
type EntryID string

// GiftCategory labels a class of gifts (e.g. "drink", "premium").
type GiftCategory string
