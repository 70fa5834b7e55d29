/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	console data: a gift catalog with layered payout rules, a month of gift
	sends ready to settle, and a cast inbox in every priority state.

AVAILABLE SCENARIOS:

	gift-catalog:  Gifts plus global, cast, category, and gift rules
	month-end:     Catalog plus last month's gift sends for two casts
	busy-inbox:    Conversations covering unreplied, SLA, risk, pause

HOW SCENARIOS WORK:
 1. Write records with fixed IDs
 2. Records that already exist are skipped, so loading twice is harmless
 3. Times are relative to the handler clock

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "month-end"}

SEE ALSO:
  - handlers.go: Handler and store wiring
  - factory/rule.go: Rule JSON definitions
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/inbox"
	"github.com/warp/concierge-engine/points"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "gift-catalog",
		Name:        "Gift Catalog",
		Description: "Gifts with global, per-cast, per-category, and per-gift payout rules",
		Category:    "settlement",
	},
	{
		ID:          "month-end",
		Name:        "Month End",
		Description: "Last month's gift sends for two casts, ready to settle",
		Category:    "settlement",
	},
	{
		ID:          "busy-inbox",
		Name:        "Busy Inbox",
		Description: "One cast's inbox with conversations in every priority state",
		Category:    "inbox",
	},
}

var demoRules = []string{
	`{"id": "rule-global", "scope_type": "global", "percent": "50", "effective_from": "2024-01-01"}`,
	`{"id": "rule-cast-aoi", "scope_type": "cast", "cast_id": "cast-aoi", "percent": "60", "effective_from": "2024-01-01"}`,
	`{"id": "rule-aoi-premium", "scope_type": "cast_gift_category", "cast_id": "cast-aoi", "gift_category": "premium", "percent": "70", "effective_from": "2024-01-01"}`,
	`{"id": "rule-aoi-champagne", "scope_type": "cast_gift", "cast_id": "cast-aoi", "gift_id": "gift-champagne", "percent": "80", "effective_from": "2024-01-01"}`,
}

var demoGifts = []settlement.Gift{
	{ID: "gift-rose", Name: "Rose", Category: "standard", PricePoints: 500, IsActive: true},
	{ID: "gift-cake", Name: "Cake", Category: "standard", PricePoints: 1200, IsActive: true},
	{ID: "gift-tiara", Name: "Tiara", Category: "premium", PricePoints: 5000, IsActive: true},
	{ID: "gift-champagne", Name: "Champagne", Category: "premium", PricePoints: 10000, IsActive: true},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()

	var err error
	switch req.ScenarioID {
	case "gift-catalog":
		err = h.loadGiftCatalogScenario(ctx)
	case "month-end":
		err = h.loadMonthEndScenario(ctx)
	case "busy-inbox":
		err = h.loadBusyInboxScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadGiftCatalogScenario(ctx context.Context) error {
	for _, g := range demoGifts {
		if err := h.Store.SaveGift(ctx, g); err != nil {
			return err
		}
	}

	for _, js := range demoRules {
		rule, err := h.RuleFactory.ParseRule(js)
		if err != nil {
			return err
		}
		if err := skipDuplicate(h.Store.SavePayoutRule(ctx, *rule)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMonthEndScenario(ctx context.Context) error {
	if err := h.loadGiftCatalogScenario(ctx); err != nil {
		return err
	}

	// Sends land in the middle of the previous JST month.
	start, err := generic.PreviousMonth(h.Now()).Start.Time()
	if err != nil {
		return err
	}
	mid := start.Add(14*24*time.Hour + 12*time.Hour)

	sends := []struct {
		user string
		cast string
		gift settlement.Gift
	}{
		{"user-haru", "cast-aoi", demoGifts[0]},
		{"user-haru", "cast-aoi", demoGifts[2]},
		{"user-haru", "cast-aoi", demoGifts[3]},
		{"user-nana", "cast-aoi", demoGifts[1]},
		{"user-nana", "cast-rin", demoGifts[1]},
		{"user-nana", "cast-rin", demoGifts[3]},
	}

	for _, user := range []generic.UserID{"user-haru", "user-nana"} {
		if err := skipDuplicate(h.appendGrant(ctx, user, 50000)); err != nil {
			return err
		}
	}

	for i, s := range sends {
		send := settlement.GiftSend{
			ID:            fmt.Sprintf("send-demo-%d", i+1),
			UserID:        generic.UserID(s.user),
			CastID:        generic.CastID(s.cast),
			GiftID:        s.gift.ID,
			GiftCategory:  s.gift.Category,
			AmountExclTax: s.gift.AmountExclTax(),
			OccurredAt:    mid.Add(time.Duration(i) * time.Hour).UTC(),
		}

		if _, err := h.Ledger.SendGift(ctx, send, s.gift.PricePoints, "demo-"+send.ID); skipDuplicate(err) != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBusyInboxScenario(ctx context.Context) error {
	now := h.Now().UTC()
	ago := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	convs := []inbox.Conversation{
		{
			// Waiting 50 minutes, inside the SLA warning window.
			UserID:            "user-haru",
			LastUserMessageAt: ago(50 * time.Minute),
			LastCheckinAt:     ago(2 * time.Hour),
			PlanPriorityLevel: 3,
		},
		{
			// Waiting 5 minutes, flagged as at risk.
			UserID:             "user-nana",
			LastUserMessageAt:  ago(5 * time.Minute),
			LastStaffMessageAt: ago(3 * time.Hour),
			LastCheckinAt:      ago(1 * time.Hour),
			HasRisk:            true,
			PlanPriorityLevel:  1,
		},
		{
			// Replied yesterday, nothing sent today, no check-in for a week.
			UserID:             "user-sora",
			LastUserMessageAt:  ago(30 * time.Hour),
			LastStaffMessageAt: ago(26 * time.Hour),
			LastCheckinAt:      ago(7 * 24 * time.Hour),
			PlanPriorityLevel:  2,
		},
		{
			// Up to date.
			UserID:             "user-yuki",
			LastUserMessageAt:  ago(2 * time.Hour),
			LastStaffMessageAt: ago(1 * time.Hour),
			LastCheckinAt:      ago(3 * time.Hour),
			PlanPriorityLevel:  4,
		},
		{
			// Paused subscription with an unreplied message.
			UserID:            "user-mio",
			LastUserMessageAt: ago(10 * time.Minute),
			LastCheckinAt:     ago(4 * time.Hour),
			IsPaused:          true,
			PlanPriorityLevel: 1,
		},
	}

	for _, c := range convs {
		c.CastID = "cast-aoi"
		c.UpdatedAt = now
		if err := h.Store.SaveConversation(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) appendGrant(ctx context.Context, userID generic.UserID, amount int64) error {
	_, err := h.Ledger.Append(ctx, points.LedgerEntry{
		UserID:         userID,
		Delta:          amount,
		Type:           points.EntryGrant,
		Reason:         "demo balance",
		IdempotencyKey: "demo-grant-" + string(userID),
	})
	return err
}

func skipDuplicate(err error) error {
	if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
		return nil
	}
	return err
}
