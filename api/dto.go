/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TRI-STATE AT THE WIRE:
  PriorityRequest.HasUnrepliedMessage is a *bool. Older console screens
  never send it; null selects the legacy SLA-only scoring path. Inside the
  engine the choice is the inbox.ReplyState variant, not a nil check.

VALIDATION:
  Validation is done in handlers and the rule factory, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/factory"
	"github.com/warp/concierge-engine/inbox"
	"github.com/warp/concierge-engine/points"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// CALCULATORS
// =============================================================================

// TaxRequest asks for a tax breakdown. A nil rate uses the configured rate.
type TaxRequest struct {
	AmountExclTax int64            `json:"amount_excl_tax"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
}

// TaxDTO is a tax breakdown.
type TaxDTO struct {
	AmountExclTax int64 `json:"amount_excl_tax"`
	TaxJpy        int64 `json:"tax_jpy"`
	AmountInclTax int64 `json:"amount_incl_tax"`
}

// PayoutRequest asks for a payout amount.
type PayoutRequest struct {
	AmountExclTax int64           `json:"amount_excl_tax"`
	Percent       decimal.Decimal `json:"percent"`
}

// PayoutDTO is a computed payout.
type PayoutDTO struct {
	PayoutAmount   int64           `json:"payout_amount"`
	PercentApplied decimal.Decimal `json:"percent_applied"`
}

// PriorityRequest is a raw inbox signal.
type PriorityRequest struct {
	HasRisk             bool       `json:"has_risk"`
	SlaRemainingMinutes *int       `json:"sla_remaining_minutes"`
	SlaWarningMinutes   int        `json:"sla_warning_minutes"`
	IsUnreported        bool       `json:"is_unreported"`
	IsPaused            bool       `json:"is_paused"`
	PlanPriorityLevel   int        `json:"plan_priority_level"`
	HasUnrepliedMessage *bool      `json:"has_unreplied_message"`
	HasSentTodayMessage bool       `json:"has_sent_today_message"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
}

// Signal converts the request into an engine signal.
func (r PriorityRequest) Signal() inbox.Signal {
	s := inbox.Signal{
		HasRisk:             r.HasRisk,
		SlaRemainingMinutes: r.SlaRemainingMinutes,
		SlaWarningMinutes:   r.SlaWarningMinutes,
		IsUnreported:        r.IsUnreported,
		IsPaused:            r.IsPaused,
		PlanPriorityLevel:   r.PlanPriorityLevel,
		LastMessageAt:       r.LastMessageAt,
		Reply:               inbox.LegacyReply{},
	}
	if r.HasUnrepliedMessage != nil {
		s.Reply = inbox.ReplyAware{
			HasUnrepliedMessage: *r.HasUnrepliedMessage,
			HasSentTodayMessage: r.HasSentTodayMessage,
		}
	}
	return s
}

// PriorityDTO is a computed score.
type PriorityDTO struct {
	Score int    `json:"score"`
	Path  string `json:"path"` // "legacy" or "reply_aware"
}

// =============================================================================
// PAYOUT RULES
// =============================================================================

// ResolveRuleRequest identifies a gift send to resolve a rule for.
type ResolveRuleRequest struct {
	CastID       string `json:"cast_id"`
	GiftID       string `json:"gift_id"`
	GiftCategory string `json:"gift_category"`
	OccurredOn   string `json:"occurred_on"`
}

// ResolveRuleDTO is the resolver output. Rule is null when nothing matched.
type ResolveRuleDTO struct {
	Matched bool              `json:"matched"`
	Rule    *factory.RuleJSON `json:"rule"`
}

// =============================================================================
// GIFTS
// =============================================================================

// GiftDTO represents a catalog gift.
type GiftDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	PricePoints int64  `json:"price_points"`
	IsActive    bool   `json:"is_active"`
}

func toGiftDTO(g settlement.Gift) GiftDTO {
	return GiftDTO{
		ID:          string(g.ID),
		Name:        g.Name,
		Category:    string(g.Category),
		PricePoints: g.PricePoints,
		IsActive:    g.IsActive,
	}
}

// SendGiftRequest sends a catalog gift to a cast.
type SendGiftRequest struct {
	CastID         string `json:"cast_id"`
	GiftID         string `json:"gift_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// GiftSendDTO is a recorded gift send.
type GiftSendDTO struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CastID        string    `json:"cast_id"`
	GiftID        string    `json:"gift_id"`
	GiftCategory  string    `json:"gift_category"`
	AmountExclTax int64     `json:"amount_excl_tax"`
	OccurredAt    time.Time `json:"occurred_at"`
	OccurredOn    string    `json:"occurred_on"`
	Balance       int64     `json:"balance"`
}

// =============================================================================
// POINTS
// =============================================================================

// EntryDTO represents a ledger entry.
type EntryDTO struct {
	ID          string    `json:"id"`
	Delta       int64     `json:"delta"`
	Type        string    `json:"type"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEntryDTO(e points.LedgerEntry) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		Delta:       e.Delta,
		Type:        string(e.Type),
		ReferenceID: e.ReferenceID,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt,
	}
}

// BalanceDTO is a point balance with its history.
type BalanceDTO struct {
	UserID  string     `json:"user_id"`
	Balance int64      `json:"balance"`
	Entries []EntryDTO `json:"entries"`
}

// PurchaseRequest buys points.
type PurchaseRequest struct {
	AmountExclTax  int64  `json:"amount_excl_tax"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PurchaseDTO is a completed point purchase.
type PurchaseDTO struct {
	Entry   EntryDTO `json:"entry"`
	Tax     TaxDTO   `json:"tax"`
	Balance int64    `json:"balance"`
}

func toTaxDTO(t settlement.TaxBreakdown) TaxDTO {
	return TaxDTO{
		AmountExclTax: t.AmountExclTax.Int64(),
		TaxJpy:        t.TaxJpy.Int64(),
		AmountInclTax: t.AmountInclTax.Int64(),
	}
}

// =============================================================================
// INBOX
// =============================================================================

// ConversationRequest replaces the chat state of a user.
type ConversationRequest struct {
	CastID             string     `json:"cast_id"`
	LastUserMessageAt  *time.Time `json:"last_user_message_at"`
	LastStaffMessageAt *time.Time `json:"last_staff_message_at"`
	LastCheckinAt      *time.Time `json:"last_checkin_at"`
	HasRisk            bool       `json:"has_risk"`
	IsPaused           bool       `json:"is_paused"`
	PlanPriorityLevel  int        `json:"plan_priority_level"`
}

// InboxItemDTO is one ranked conversation.
type InboxItemDTO struct {
	UserID              string `json:"user_id"`
	Score               int    `json:"score"`
	HasUnrepliedMessage bool   `json:"has_unreplied_message"`
	HasSentTodayMessage bool   `json:"has_sent_today_message"`
	SlaRemainingMinutes *int   `json:"sla_remaining_minutes"`
	SlaWarning          bool   `json:"sla_warning"`
	IsUnreported        bool   `json:"is_unreported"`
	HasRisk             bool   `json:"has_risk"`
	IsPaused            bool   `json:"is_paused"`
	PlanPriorityLevel   int    `json:"plan_priority_level"`
}

func toInboxItemDTO(r inbox.Ranked) InboxItemDTO {
	item := InboxItemDTO{
		UserID:              string(r.Conversation.UserID),
		Score:               r.Score,
		SlaRemainingMinutes: r.Signal.SlaRemainingMinutes,
		IsUnreported:        r.Signal.IsUnreported,
		HasRisk:             r.Signal.HasRisk,
		IsPaused:            r.Signal.IsPaused,
		PlanPriorityLevel:   r.Signal.PlanPriorityLevel,
	}
	if r.Signal.SlaRemainingMinutes != nil {
		item.SlaWarning = *r.Signal.SlaRemainingMinutes <= r.Signal.SlaWarningMinutes
	}
	if reply, ok := r.Signal.Reply.(inbox.ReplyAware); ok {
		item.HasUnrepliedMessage = reply.HasUnrepliedMessage
		item.HasSentTodayMessage = reply.HasSentTodayMessage
	}
	return item
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// RunSettlementRequest selects the period to settle. Empty dates settle
// the previous JST calendar month.
type RunSettlementRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// SettlementLineDTO is one computed payout.
type SettlementLineDTO struct {
	GiftSendID     string          `json:"gift_send_id"`
	CastID         string          `json:"cast_id"`
	RuleID         string          `json:"rule_id"`
	OccurredOn     string          `json:"occurred_on"`
	AmountExclTax  int64           `json:"amount_excl_tax"`
	PercentApplied decimal.Decimal `json:"percent_applied"`
	PayoutAmount   int64           `json:"payout_amount"`
}

// CastTotalDTO aggregates one cast.
type CastTotalDTO struct {
	CastID        string `json:"cast_id"`
	AmountExclTax int64  `json:"amount_excl_tax"`
	PayoutAmount  int64  `json:"payout_amount"`
	LineCount     int    `json:"line_count"`
}

// SettlementRunDTO is a settlement run. Lines, totals, and unmatched sends
// are only present right after a run.
type SettlementRunDTO struct {
	ID             string              `json:"id"`
	PeriodStart    string              `json:"period_start"`
	PeriodEnd      string              `json:"period_end"`
	TotalPayout    int64               `json:"total_payout"`
	UnmatchedCount int                 `json:"unmatched_count"`
	CreatedAt      time.Time           `json:"created_at"`
	Lines          []SettlementLineDTO `json:"lines,omitempty"`
	Totals         []CastTotalDTO      `json:"totals,omitempty"`
	Unmatched      []string            `json:"unmatched_gift_send_ids,omitempty"`
}

func toRunSummaryDTO(r settlement.RunSummary) SettlementRunDTO {
	return SettlementRunDTO{
		ID:             r.ID,
		PeriodStart:    r.Period.Start.String(),
		PeriodEnd:      r.Period.End.String(),
		TotalPayout:    r.TotalPayout.Int64(),
		UnmatchedCount: r.UnmatchedCount,
		CreatedAt:      r.CreatedAt,
	}
}

func toRunDTO(r settlement.Run) SettlementRunDTO {
	dto := toRunSummaryDTO(r.Summary())
	for _, l := range r.Result.Lines {
		dto.Lines = append(dto.Lines, SettlementLineDTO{
			GiftSendID:     l.GiftSendID,
			CastID:         string(l.CastID),
			RuleID:         string(l.RuleID),
			OccurredOn:     l.OccurredOn.String(),
			AmountExclTax:  l.AmountExclTax.Int64(),
			PercentApplied: l.PercentApplied,
			PayoutAmount:   l.PayoutAmount.Int64(),
		})
	}
	for _, t := range r.Result.Totals {
		dto.Totals = append(dto.Totals, CastTotalDTO{
			CastID:        string(t.CastID),
			AmountExclTax: t.AmountExclTax.Int64(),
			PayoutAmount:  t.PayoutAmount.Int64(),
			LineCount:     t.LineCount,
		})
	}
	for _, u := range r.Result.Unmatched {
		dto.Unmatched = append(dto.Unmatched, u.ID)
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "settlement" or "inbox"
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
