package settlement

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/generic"
)

// =============================================================================
// GIFT SEND - Input to the settlement batch
// =============================================================================

// GiftSend is one gift a user sent to a cast.
type GiftSend struct {
	ID            string
	UserID        generic.UserID
	CastID        generic.CastID
	GiftID        generic.GiftID
	GiftCategory  generic.GiftCategory
	AmountExclTax generic.Yen
	OccurredAt    time.Time
}

// OccurredOn is the JST business day of the send. Rules are windowed by it.
func (g GiftSend) OccurredOn() generic.Date {
	return generic.DateOf(g.OccurredAt)
}

// =============================================================================
// BATCH RESULT
// =============================================================================

// Line is the computed payout for a single gift send.
type Line struct {
	GiftSendID     string
	CastID         generic.CastID
	RuleID         generic.RuleID
	OccurredOn     generic.Date
	AmountExclTax  generic.Yen
	PercentApplied decimal.Decimal
	PayoutAmount   generic.Yen
}

// CastTotal aggregates the lines of one cast.
type CastTotal struct {
	CastID        generic.CastID
	AmountExclTax generic.Yen
	PayoutAmount  generic.Yen
	LineCount     int
}

// BatchResult is the output of ComputeBatch.
//
// Unmatched holds sends that no rule covered. They get no line and no
// implicit 0% payout; they are a configuration gap for an operator to fix.
type BatchResult struct {
	Lines     []Line
	Unmatched []GiftSend
	Totals    []CastTotal
}

// TotalPayout sums every line.
func (b BatchResult) TotalPayout() generic.Yen {
	return lo.SumBy(b.Lines, func(l Line) generic.Yen { return l.PayoutAmount })
}

// =============================================================================
// BATCH COMPUTATION
// =============================================================================

// ComputeBatch resolves a rule for each send and applies CalculatePayout.
// Lines keep the order of sends; totals are sorted by cast ID.
func ComputeBatch(rules []PayoutRule, sends []GiftSend) BatchResult {
	result := BatchResult{}

	for _, send := range sends {
		occurredOn := send.OccurredOn()
		rule := ResolvePayoutRule(rules, send.CastID, send.GiftID, send.GiftCategory, occurredOn)
		if rule == nil {
			result.Unmatched = append(result.Unmatched, send)
			continue
		}

		payout := CalculatePayout(send.AmountExclTax, rule.Percent)
		result.Lines = append(result.Lines, Line{
			GiftSendID:     send.ID,
			CastID:         send.CastID,
			RuleID:         rule.ID,
			OccurredOn:     occurredOn,
			AmountExclTax:  send.AmountExclTax,
			PercentApplied: payout.PercentApplied,
			PayoutAmount:   payout.PayoutAmount,
		})
	}

	result.Totals = totalsByCast(result.Lines)
	return result
}

func totalsByCast(lines []Line) []CastTotal {
	grouped := lo.GroupBy(lines, func(l Line) generic.CastID { return l.CastID })

	totals := make([]CastTotal, 0, len(grouped))
	for castID, castLines := range grouped {
		totals = append(totals, CastTotal{
			CastID:        castID,
			AmountExclTax: lo.SumBy(castLines, func(l Line) generic.Yen { return l.AmountExclTax }),
			PayoutAmount:  lo.SumBy(castLines, func(l Line) generic.Yen { return l.PayoutAmount }),
			LineCount:     len(castLines),
		})
	}

	sort.Slice(totals, func(i, j int) bool { return totals[i].CastID < totals[j].CastID })
	return totals
}
