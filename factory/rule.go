/*
Package factory provides JSON to Go payout rule conversion.

PURPOSE:
  Converts JSON rule definitions from the admin forms into
  settlement.PayoutRule values. The factory is the boundary where rule
  input is validated, so the resolver can assume well-formed rules.

JSON SCHEMA:
  {
    "id": "rule-cast-a-champagne",
    "rule_type": "gift_share",
    "scope_type": "cast_gift",
    "cast_id": "cast-a",
    "gift_id": "champagne",
    "percent": 30,
    "effective_from": "2024-01-01",
    "effective_to": "2024-12-31",
    "is_active": true
  }

VALIDATION:
  - percent within [0, 100] (fractional allowed, e.g. 33.33)
  - cast_id required for cast, cast_gift, cast_gift_category
  - gift_id required for cast_gift, gift_category for cast_gift_category
  - dates strictly YYYY-MM-DD; effective_to not before effective_from
  - rule_type defaults to gift_share, is_active defaults to true

  Every problem is reported at once (errors.Join), so a form can highlight
  all invalid fields in one round trip.

USAGE:
  f := factory.NewRuleFactory()
  rule, err := f.ParseRule(jsonString)
  rules, err := f.ParseRuleSet(jsonArray)

SEE ALSO:
  - settlement/rules.go: PayoutRule type definition and resolver
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a payout rule.
type RuleJSON struct {
	ID            string          `json:"id"`
	RuleType      string          `json:"rule_type,omitempty"`
	ScopeType     string          `json:"scope_type"`
	CastID        string          `json:"cast_id,omitempty"`
	GiftID        string          `json:"gift_id,omitempty"`
	GiftCategory  string          `json:"gift_category,omitempty"`
	Percent       decimal.Decimal `json:"percent"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

var maxPercent = decimal.NewFromInt(100)

// RuleFactory converts JSON rules to settlement.PayoutRule.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses a JSON object into a PayoutRule.
func (f *RuleFactory) ParseRule(jsonStr string) (*settlement.PayoutRule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// ParseRuleSet parses a JSON array of rules, preserving order.
func (f *RuleFactory) ParseRuleSet(jsonStr string) ([]settlement.PayoutRule, error) {
	var rjs []RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rjs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set JSON: %w", err)
	}

	rules := make([]settlement.PayoutRule, 0, len(rjs))
	for i, rj := range rjs {
		rule, err := f.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rj.ID, err)
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

// FromJSON validates rj and converts it to a PayoutRule.
func (f *RuleFactory) FromJSON(rj RuleJSON) (*settlement.PayoutRule, error) {
	var errs []error
	invalid := func(field, value string, err error) {
		errs = append(errs, &generic.ValidationError{Field: field, Value: value, Err: err})
	}

	rule := &settlement.PayoutRule{
		ID:           generic.RuleID(rj.ID),
		RuleType:     parseRuleType(rj.RuleType),
		ScopeType:    settlement.ScopeType(rj.ScopeType),
		CastID:       generic.CastID(rj.CastID),
		GiftID:       generic.GiftID(rj.GiftID),
		GiftCategory: generic.GiftCategory(rj.GiftCategory),
		Percent:      rj.Percent,
		IsActive:     true,
	}
	if rj.IsActive != nil {
		rule.IsActive = *rj.IsActive
	}

	if rule.RuleType != settlement.RuleGiftShare {
		invalid("rule_type", rj.RuleType, generic.ErrUnknownRuleType)
	}

	// Scope requirements
	switch {
	case !rule.ScopeType.Known():
		invalid("scope_type", rj.ScopeType, generic.ErrUnknownScope)
	case rule.ScopeType.RequiresCast() && rule.CastID == "":
		invalid("cast_id", "", generic.ErrCastRequired)
	}
	if rule.ScopeType == settlement.ScopeCastGift && rule.GiftID == "" {
		invalid("gift_id", "", generic.ErrGiftRequired)
	}
	if rule.ScopeType == settlement.ScopeCastGiftCategory && rule.GiftCategory == "" {
		invalid("gift_category", "", generic.ErrCategoryRequired)
	}

	if rule.Percent.IsNegative() || rule.Percent.GreaterThan(maxPercent) {
		invalid("percent", rule.Percent.String(), generic.ErrInvalidPercent)
	}

	// Effective window
	from, err := generic.ParseDate(rj.EffectiveFrom)
	if err != nil {
		invalid("effective_from", rj.EffectiveFrom, generic.ErrInvalidDate)
	}
	rule.EffectiveFrom = from

	if rj.EffectiveTo != nil && *rj.EffectiveTo != "" {
		to, err := generic.ParseDate(*rj.EffectiveTo)
		if err != nil {
			invalid("effective_to", *rj.EffectiveTo, generic.ErrInvalidDate)
		} else {
			rule.EffectiveTo = &to
			if !from.IsZero() && to.Before(from) {
				invalid("effective_to", *rj.EffectiveTo, generic.ErrInvalidPeriod)
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rule, nil
}

// ToJSON converts a PayoutRule back to its JSON representation.
func (f *RuleFactory) ToJSON(r settlement.PayoutRule) RuleJSON {
	active := r.IsActive
	rj := RuleJSON{
		ID:            string(r.ID),
		RuleType:      string(r.RuleType),
		ScopeType:     string(r.ScopeType),
		CastID:        string(r.CastID),
		GiftID:        string(r.GiftID),
		GiftCategory:  string(r.GiftCategory),
		Percent:       r.Percent,
		EffectiveFrom: r.EffectiveFrom.String(),
		IsActive:      &active,
	}
	if r.EffectiveTo != nil {
		to := r.EffectiveTo.String()
		rj.EffectiveTo = &to
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRuleType(s string) settlement.RuleType {
	if s == "" {
		return settlement.RuleGiftShare
	}
	return settlement.RuleType(s)
}
