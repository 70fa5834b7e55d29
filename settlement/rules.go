package settlement

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/generic"
)

// =============================================================================
// PAYOUT RULE - Revenue share under a scope and a date window
// =============================================================================

// RuleType identifies what a rule pays out on.
type RuleType string

const (
	RuleGiftShare RuleType = "gift_share" // Share of gift-send revenue
)

// ScopeType controls which transactions a rule applies to.
type ScopeType string

const (
	ScopeGlobal           ScopeType = "global"             // System-wide default
	ScopeCast             ScopeType = "cast"               // Per-cast default across all gifts
	ScopeCastGift         ScopeType = "cast_gift"          // Per-cast, per-gift override
	ScopeCastGiftCategory ScopeType = "cast_gift_category" // Per-cast override for a gift category
)

// RequiresCast reports whether rules of this scope must name a cast.
func (s ScopeType) RequiresCast() bool {
	return s == ScopeCast || s == ScopeCastGift || s == ScopeCastGiftCategory
}

// Known reports whether s is one of the defined scopes.
func (s ScopeType) Known() bool {
	return s == ScopeGlobal || s.RequiresCast()
}

// PayoutRule is a revenue-share percent applicable under a scope and window.
//
// Rules are deactivated, never deleted, so past settlements stay explainable.
// Optional IDs use the zero value for "absent".
type PayoutRule struct {
	ID            generic.RuleID
	RuleType      RuleType
	ScopeType     ScopeType
	CastID        generic.CastID
	GiftID        generic.GiftID
	GiftCategory  generic.GiftCategory
	Percent       decimal.Decimal // 0-100, fractional allowed
	EffectiveFrom generic.Date    // inclusive
	EffectiveTo   *generic.Date   // inclusive, nil = open-ended
	IsActive      bool
}

// IsValidOn reports whether the rule is active and its window contains d.
func (r PayoutRule) IsValidOn(d generic.Date) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveFrom.After(d) {
		return false
	}
	return r.EffectiveTo == nil || r.EffectiveTo.AfterOrEqual(d)
}

// =============================================================================
// RESOLVER
// =============================================================================

// ResolvePayoutRule returns the rule that applies to a gift send, or nil.
//
// Valid rules are searched tier by tier, most specific first:
//  1. cast_gift           matching cast and gift
//  2. cast_gift_category  matching cast and gift category
//  3. cast                matching cast
//  4. global
//
// Within a tier the first rule in input order wins. Overlapping rules in the
// same tier are not reordered by date; callers that care must pass a
// deterministic order. A nil result is not an error: the caller decides
// whether to fall back or report a configuration gap.
func ResolvePayoutRule(
	rules []PayoutRule,
	castID generic.CastID,
	giftID generic.GiftID,
	giftCategory generic.GiftCategory,
	occurredOn generic.Date,
) *PayoutRule {
	valid := lo.Filter(rules, func(r PayoutRule, _ int) bool {
		return r.IsValidOn(occurredOn)
	})

	tiers := []func(PayoutRule) bool{
		func(r PayoutRule) bool {
			return r.ScopeType == ScopeCastGift && r.CastID == castID && r.GiftID == giftID
		},
		func(r PayoutRule) bool {
			return r.ScopeType == ScopeCastGiftCategory && r.CastID == castID && r.GiftCategory == giftCategory
		},
		func(r PayoutRule) bool {
			return r.ScopeType == ScopeCast && r.CastID == castID
		},
		func(r PayoutRule) bool {
			return r.ScopeType == ScopeGlobal
		},
	}

	for _, match := range tiers {
		if rule, ok := lo.Find(valid, match); ok {
			return &rule
		}
	}
	return nil
}
