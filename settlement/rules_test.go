package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	castA    generic.CastID       = "cast-a"
	castB    generic.CastID       = "cast-b"
	giftG    generic.GiftID       = "gift-g"
	giftH    generic.GiftID       = "gift-h"
	premium  generic.GiftCategory = "premium"
	standard generic.GiftCategory = "standard"
)

func rule(id string, scope settlement.ScopeType, percent string) settlement.PayoutRule {
	return settlement.PayoutRule{
		ID:            generic.RuleID(id),
		RuleType:      settlement.RuleGiftShare,
		ScopeType:     scope,
		Percent:       decimal.RequireFromString(percent),
		EffectiveFrom: generic.MustParseDate("2024-01-01"),
		IsActive:      true,
	}
}

func globalRule(id, percent string) settlement.PayoutRule {
	return rule(id, settlement.ScopeGlobal, percent)
}

func castRule(id string, cast generic.CastID, percent string) settlement.PayoutRule {
	r := rule(id, settlement.ScopeCast, percent)
	r.CastID = cast
	return r
}

func castGiftRule(id string, cast generic.CastID, gift generic.GiftID, percent string) settlement.PayoutRule {
	r := rule(id, settlement.ScopeCastGift, percent)
	r.CastID = cast
	r.GiftID = gift
	return r
}

func castCategoryRule(id string, cast generic.CastID, cat generic.GiftCategory, percent string) settlement.PayoutRule {
	r := rule(id, settlement.ScopeCastGiftCategory, percent)
	r.CastID = cast
	r.GiftCategory = cat
	return r
}

func datePtr(s string) *generic.Date {
	d := generic.MustParseDate(s)
	return &d
}

var onDate = generic.MustParseDate("2024-03-15")

// =============================================================================
// TIER PRIORITY TESTS
// =============================================================================

func TestResolvePayoutRule_MostSpecificTierWins(t *testing.T) {
	// GIVEN: global 10%, cast A 20%, cast A + gift G 30%, all valid
	rules := []settlement.PayoutRule{
		globalRule("global", "10"),
		castRule("cast-a", castA, "20"),
		castGiftRule("cast-a-g", castA, giftG, "30"),
	}

	t.Run("cast and gift match", func(t *testing.T) {
		got := settlement.ResolvePayoutRule(rules, castA, giftG, standard, onDate)
		require.NotNil(t, got)
		assert.Equal(t, generic.RuleID("cast-a-g"), got.ID)
	})

	t.Run("cast matches, other gift", func(t *testing.T) {
		got := settlement.ResolvePayoutRule(rules, castA, giftH, premium, onDate)
		require.NotNil(t, got)
		assert.Equal(t, generic.RuleID("cast-a"), got.ID)
	})

	t.Run("other cast falls back to global", func(t *testing.T) {
		got := settlement.ResolvePayoutRule(rules, castB, giftG, standard, onDate)
		require.NotNil(t, got)
		assert.Equal(t, generic.RuleID("global"), got.ID)
	})
}

func TestResolvePayoutRule_CategoryBetweenGiftAndCast(t *testing.T) {
	rules := []settlement.PayoutRule{
		castRule("cast-a", castA, "20"),
		castCategoryRule("cast-a-premium", castA, premium, "25"),
		castGiftRule("cast-a-g", castA, giftG, "30"),
	}

	// Gift rule beats category rule
	got := settlement.ResolvePayoutRule(rules, castA, giftG, premium, onDate)
	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("cast-a-g"), got.ID)

	// Category rule beats cast rule
	got = settlement.ResolvePayoutRule(rules, castA, giftH, premium, onDate)
	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("cast-a-premium"), got.ID)

	// Other category falls to cast rule
	got = settlement.ResolvePayoutRule(rules, castA, giftH, standard, onDate)
	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("cast-a"), got.ID)
}

func TestResolvePayoutRule_OtherCastsRulesNeverMatch(t *testing.T) {
	rules := []settlement.PayoutRule{
		castGiftRule("b-g", castB, giftG, "90"),
		castCategoryRule("b-premium", castB, premium, "80"),
		castRule("b", castB, "70"),
	}

	got := settlement.ResolvePayoutRule(rules, castA, giftG, premium, onDate)

	assert.Nil(t, got)
}

func TestResolvePayoutRule_NoRulesReturnsNil(t *testing.T) {
	assert.Nil(t, settlement.ResolvePayoutRule(nil, castA, giftG, premium, onDate))
}

// =============================================================================
// VALIDITY TESTS
// =============================================================================

func TestResolvePayoutRule_RespectsEffectiveFrom(t *testing.T) {
	r := globalRule("feb", "10")
	r.EffectiveFrom = generic.MustParseDate("2024-02-01")

	got := settlement.ResolvePayoutRule([]settlement.PayoutRule{r}, castA, giftG, premium, generic.MustParseDate("2024-01-15"))

	assert.Nil(t, got)
}

func TestResolvePayoutRule_RespectsEffectiveTo(t *testing.T) {
	r := globalRule("jan", "10")
	r.EffectiveTo = datePtr("2024-01-31")

	assert.Nil(t, settlement.ResolvePayoutRule([]settlement.PayoutRule{r}, castA, giftG, premium, generic.MustParseDate("2024-02-01")))
	assert.NotNil(t, settlement.ResolvePayoutRule([]settlement.PayoutRule{r}, castA, giftG, premium, generic.MustParseDate("2024-01-31")))
}

func TestResolvePayoutRule_WindowBoundsAreInclusive(t *testing.T) {
	r := globalRule("march", "10")
	r.EffectiveFrom = generic.MustParseDate("2024-03-01")
	r.EffectiveTo = datePtr("2024-03-31")
	rules := []settlement.PayoutRule{r}

	assert.NotNil(t, settlement.ResolvePayoutRule(rules, castA, giftG, premium, generic.MustParseDate("2024-03-01")))
	assert.NotNil(t, settlement.ResolvePayoutRule(rules, castA, giftG, premium, generic.MustParseDate("2024-03-31")))
	assert.Nil(t, settlement.ResolvePayoutRule(rules, castA, giftG, premium, generic.MustParseDate("2024-02-29")))
	assert.Nil(t, settlement.ResolvePayoutRule(rules, castA, giftG, premium, generic.MustParseDate("2024-04-01")))
}

func TestResolvePayoutRule_InactiveRuleIsSkipped(t *testing.T) {
	// GIVEN: An inactive cast+gift rule and an active global rule
	// THEN: The specific rule is not used, resolution falls through
	specific := castGiftRule("cast-a-g", castA, giftG, "30")
	specific.IsActive = false
	rules := []settlement.PayoutRule{specific, globalRule("global", "10")}

	got := settlement.ResolvePayoutRule(rules, castA, giftG, premium, onDate)

	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("global"), got.ID)
}

func TestResolvePayoutRule_ExpiredSpecificFallsThrough(t *testing.T) {
	expired := castGiftRule("cast-a-g-old", castA, giftG, "30")
	expired.EffectiveTo = datePtr("2024-02-29")
	rules := []settlement.PayoutRule{expired, castRule("cast-a", castA, "20")}

	got := settlement.ResolvePayoutRule(rules, castA, giftG, premium, onDate)

	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("cast-a"), got.ID)
}

// =============================================================================
// TIE-BREAK TESTS
// =============================================================================

func TestResolvePayoutRule_FirstMatchInInputOrderWithinTier(t *testing.T) {
	// GIVEN: Two overlapping valid cast rules, the later one with a narrower
	// and more recent window
	// THEN: The first in input order still wins; no date-based tiebreak
	broad := castRule("broad", castA, "20")
	narrow := castRule("narrow", castA, "40")
	narrow.EffectiveFrom = generic.MustParseDate("2024-03-01")
	narrow.EffectiveTo = datePtr("2024-03-31")

	got := settlement.ResolvePayoutRule([]settlement.PayoutRule{broad, narrow}, castA, giftG, premium, onDate)
	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("broad"), got.ID)

	got = settlement.ResolvePayoutRule([]settlement.PayoutRule{narrow, broad}, castA, giftG, premium, onDate)
	require.NotNil(t, got)
	assert.Equal(t, generic.RuleID("narrow"), got.ID)
}

func TestResolvePayoutRule_ReturnsCopy(t *testing.T) {
	rules := []settlement.PayoutRule{globalRule("global", "10")}

	got := settlement.ResolvePayoutRule(rules, castA, giftG, premium, onDate)
	require.NotNil(t, got)
	got.Percent = decimal.NewFromInt(99)

	assert.True(t, decimal.NewFromInt(10).Equal(rules[0].Percent))
}

func TestScopeType_RequiresCast(t *testing.T) {
	assert.False(t, settlement.ScopeGlobal.RequiresCast())
	assert.True(t, settlement.ScopeCast.RequiresCast())
	assert.True(t, settlement.ScopeCastGift.RequiresCast())
	assert.True(t, settlement.ScopeCastGiftCategory.RequiresCast())
	assert.False(t, settlement.ScopeType("team").Known())
}
