/*
handlers.go - HTTP API handlers for the concierge operations console

PURPOSE:
  Exposes the scoring and payout engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calculators (stateless):
    POST   /api/calc/tax                       Tax breakdown
    POST   /api/calc/payout                    Payout for an amount and percent
    POST   /api/calc/priority                  Inbox priority for a raw signal

  Payout rules:
    GET    /api/payout-rules                   List rules in resolution order
    POST   /api/payout-rules                   Create rule from JSON
    POST   /api/payout-rules/{id}/deactivate   Switch a rule off
    POST   /api/payout-rules/resolve           Resolve the rule for a gift send

  Gifts and points:
    GET    /api/gifts                          Gift catalog
    POST   /api/gifts                          Create or update a gift
    GET    /api/users/{id}/points              Balance and ledger history
    POST   /api/users/{id}/points/purchases    Buy points
    POST   /api/users/{id}/gifts               Spend points on a gift

  Inbox:
    PUT    /api/conversations/{userID}         Replace a user's chat state
    GET    /api/casts/{id}/inbox               Ranked inbox of a cast

  Settlement:
    POST   /api/settlements/run                Run the payout batch
    GET    /api/settlements                    Run history

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (sqlite or memory)
  - Ledger: Point ledger over the store
  - Settlement: Batch runner over the store
  - RuleFactory: JSON to PayoutRule conversion
  - Now: Clock, replaced in tests

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (idempotency, duplicate)
  - 422: Insufficient point balance
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. The console sits behind the
  operator VPN.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/factory"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/inbox"
	"github.com/warp/concierge-engine/points"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs. Both store/sqlite and
// store/memory satisfy it.
type Store interface {
	points.TxStore
	settlement.Repository

	SavePayoutRule(ctx context.Context, r settlement.PayoutRule) error
	DeactivatePayoutRule(ctx context.Context, id generic.RuleID) error

	SaveGift(ctx context.Context, g settlement.Gift) error
	GetGift(ctx context.Context, id generic.GiftID) (*settlement.Gift, error)
	ListGifts(ctx context.Context) ([]settlement.Gift, error)
	SaveGiftSend(ctx context.Context, g settlement.GiftSend) error

	SaveConversation(ctx context.Context, c inbox.Conversation) error
	ListConversationsByCast(ctx context.Context, castID generic.CastID) ([]inbox.Conversation, error)

	ListSettlementRuns(ctx context.Context) ([]settlement.RunSummary, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       Store
	Ledger      *points.Ledger
	Settlement  *settlement.Service
	RuleFactory *factory.RuleFactory
	Logger      *slog.Logger

	TaxRate decimal.Decimal
	Inbox   inbox.Config
	Now     func() time.Time
}

// NewHandler creates a handler with default thresholds and the wall clock.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		Store:       store,
		Ledger:      points.NewLedger(store),
		Settlement:  settlement.NewService(store),
		RuleFactory: factory.NewRuleFactory(),
		Logger:      logger,
		TaxRate:     settlement.DefaultTaxRate,
		Inbox:       inbox.DefaultConfig(),
		Now:         time.Now,
	}
}

// SetClock replaces the clock of the handler and the services it owns.
func (h *Handler) SetClock(now func() time.Time) {
	h.Now = now
	h.Ledger.Now = now
	h.Settlement.Now = now
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// CalcTax returns a tax breakdown.
// POST /api/calc/tax
func (h *Handler) CalcTax(w http.ResponseWriter, r *http.Request) {
	var req TaxRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rate := h.TaxRate
	if req.TaxRate != nil {
		rate = *req.TaxRate
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		writeError(w, http.StatusBadRequest, "tax_rate must be between 0 and 1", nil)
		return
	}

	writeJSON(w, http.StatusOK, toTaxDTO(settlement.CalculateTax(generic.Yen(req.AmountExclTax), rate)))
}

// CalcPayout returns a payout amount.
// POST /api/calc/payout
func (h *Handler) CalcPayout(w http.ResponseWriter, r *http.Request) {
	var req PayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := settlement.CalculatePayout(generic.Yen(req.AmountExclTax), req.Percent)
	writeJSON(w, http.StatusOK, PayoutDTO{
		PayoutAmount:   result.PayoutAmount.Int64(),
		PercentApplied: result.PercentApplied,
	})
}

// CalcPriority scores a raw inbox signal.
// POST /api/calc/priority
func (h *Handler) CalcPriority(w http.ResponseWriter, r *http.Request) {
	var req PriorityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	signal := req.Signal()
	path := "reply_aware"
	if _, legacy := signal.Reply.(inbox.LegacyReply); legacy {
		path = "legacy"
	}

	writeJSON(w, http.StatusOK, PriorityDTO{
		Score: inbox.CalculatePriority(signal, h.Now()),
		Path:  path,
	})
}

// =============================================================================
// PAYOUT RULE HANDLERS
// =============================================================================

// ListPayoutRules returns every rule in resolution order.
// GET /api/payout-rules
func (h *Handler) ListPayoutRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListPayoutRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payout rules", err)
		return
	}

	dtos := lo.Map(rules, func(rule settlement.PayoutRule, _ int) factory.RuleJSON {
		return h.RuleFactory.ToJSON(rule)
	})
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayoutRule validates and stores a new rule. An empty id is generated.
// POST /api/payout-rules
func (h *Handler) CreatePayoutRule(w http.ResponseWriter, r *http.Request) {
	var req factory.RuleJSON
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = "rule-" + uuid.NewString()
	}

	rule, err := h.RuleFactory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payout rule", err)
		return
	}

	if err := h.Store.SavePayoutRule(r.Context(), *rule); err != nil {
		h.writeDomainError(w, "Failed to save payout rule", err)
		return
	}

	h.Logger.Info("payout rule created",
		"rule_id", rule.ID,
		"scope_type", rule.ScopeType,
		"cast_id", rule.CastID,
		"percent", rule.Percent.String(),
	)
	writeJSON(w, http.StatusCreated, h.RuleFactory.ToJSON(*rule))
}

// DeactivatePayoutRule switches a rule off. Rules are never deleted so past
// settlement lines keep pointing at them.
// POST /api/payout-rules/{id}/deactivate
func (h *Handler) DeactivatePayoutRule(w http.ResponseWriter, r *http.Request) {
	id := generic.RuleID(chi.URLParam(r, "id"))

	if err := h.Store.DeactivatePayoutRule(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to deactivate payout rule", err)
		return
	}

	h.Logger.Info("payout rule deactivated", "rule_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ResolvePayoutRule returns the rule that would price a gift send.
// POST /api/payout-rules/resolve
func (h *Handler) ResolvePayoutRule(w http.ResponseWriter, r *http.Request) {
	var req ResolveRuleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	occurredOn, err := generic.ParseDate(req.OccurredOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid occurred_on (use YYYY-MM-DD)", err)
		return
	}

	rules, err := h.Store.ListPayoutRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payout rules", err)
		return
	}

	rule := settlement.ResolvePayoutRule(rules,
		generic.CastID(req.CastID),
		generic.GiftID(req.GiftID),
		generic.GiftCategory(req.GiftCategory),
		occurredOn,
	)

	resp := ResolveRuleDTO{}
	if rule != nil {
		rj := h.RuleFactory.ToJSON(*rule)
		resp.Matched = true
		resp.Rule = &rj
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// GIFT HANDLERS
// =============================================================================

// ListGifts returns the gift catalog.
// GET /api/gifts
func (h *Handler) ListGifts(w http.ResponseWriter, r *http.Request) {
	gifts, err := h.Store.ListGifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gifts", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(gifts, func(g settlement.Gift, _ int) GiftDTO { return toGiftDTO(g) }))
}

// SaveGift creates or updates a catalog gift.
// POST /api/gifts
func (h *Handler) SaveGift(w http.ResponseWriter, r *http.Request) {
	var req GiftDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "id and category are required", nil)
		return
	}
	if req.PricePoints <= 0 {
		writeError(w, http.StatusBadRequest, "price_points must be positive", nil)
		return
	}

	gift := settlement.Gift{
		ID:          generic.GiftID(req.ID),
		Name:        req.Name,
		Category:    generic.GiftCategory(req.Category),
		PricePoints: req.PricePoints,
		IsActive:    req.IsActive,
	}
	if err := h.Store.SaveGift(r.Context(), gift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save gift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGiftDTO(gift))
}

// SendGift spends a user's points on a gift to a cast and records the send
// for settlement.
// POST /api/users/{id}/gifts
func (h *Handler) SendGift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := generic.UserID(chi.URLParam(r, "id"))

	var req SendGiftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CastID == "" || req.GiftID == "" {
		writeError(w, http.StatusBadRequest, "cast_id and gift_id are required", nil)
		return
	}

	gift, err := h.Store.GetGift(ctx, generic.GiftID(req.GiftID))
	if err != nil {
		h.writeDomainError(w, "Failed to load gift", err)
		return
	}
	if !gift.IsActive {
		writeError(w, http.StatusBadRequest, "Gift is not available", nil)
		return
	}

	send := settlement.GiftSend{
		ID:            "send-" + uuid.NewString(),
		UserID:        userID,
		CastID:        generic.CastID(req.CastID),
		GiftID:        gift.ID,
		GiftCategory:  gift.Category,
		AmountExclTax: gift.AmountExclTax(),
		OccurredAt:    h.Now().UTC(),
	}

	if _, err := h.Ledger.SendGift(ctx, send, gift.PricePoints, req.IdempotencyKey); err != nil {
		h.writeDomainError(w, "Failed to send gift", err)
		return
	}

	balance, err := h.Ledger.Balance(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to calculate balance", err)
		return
	}

	h.Logger.Info("gift sent",
		"gift_send_id", send.ID,
		"user_id", userID,
		"cast_id", send.CastID,
		"gift_id", send.GiftID,
		"amount_excl_tax", send.AmountExclTax.Int64(),
	)
	writeJSON(w, http.StatusCreated, GiftSendDTO{
		ID:            send.ID,
		UserID:        string(send.UserID),
		CastID:        string(send.CastID),
		GiftID:        string(send.GiftID),
		GiftCategory:  string(send.GiftCategory),
		AmountExclTax: send.AmountExclTax.Int64(),
		OccurredAt:    send.OccurredAt,
		OccurredOn:    send.OccurredOn().String(),
		Balance:       balance,
	})
}

// =============================================================================
// POINT HANDLERS
// =============================================================================

// GetPoints returns a user's balance and full ledger history.
// GET /api/users/{id}/points
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "id"))

	entries, err := h.Store.LoadEntries(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:  string(userID),
		Balance: points.CalculateBalance(entries),
		Entries: lo.Map(entries, func(e points.LedgerEntry, _ int) EntryDTO { return toEntryDTO(e) }),
	})
}

// PurchasePoints records a completed point purchase.
// POST /api/users/{id}/points/purchases
func (h *Handler) PurchasePoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := generic.UserID(chi.URLParam(r, "id"))

	var req PurchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.Ledger.Purchase(ctx, userID, generic.Yen(req.AmountExclTax), h.TaxRate, req.IdempotencyKey)
	if err != nil {
		h.writeDomainError(w, "Failed to purchase points", err)
		return
	}

	balance, err := h.Ledger.Balance(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to calculate balance", err)
		return
	}

	h.Logger.Info("points purchased",
		"user_id", userID,
		"amount_excl_tax", order.Tax.AmountExclTax.Int64(),
		"tax_jpy", order.Tax.TaxJpy.Int64(),
	)
	writeJSON(w, http.StatusCreated, PurchaseDTO{
		Entry:   toEntryDTO(order.Entry),
		Tax:     toTaxDTO(order.Tax),
		Balance: balance,
	})
}

// =============================================================================
// INBOX HANDLERS
// =============================================================================

// PutConversation replaces the chat state of a user.
// PUT /api/conversations/{userID}
func (h *Handler) PutConversation(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))

	var req ConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CastID == "" {
		writeError(w, http.StatusBadRequest, "cast_id is required", nil)
		return
	}

	conv := inbox.Conversation{
		UserID:             userID,
		CastID:             generic.CastID(req.CastID),
		LastUserMessageAt:  req.LastUserMessageAt,
		LastStaffMessageAt: req.LastStaffMessageAt,
		LastCheckinAt:      req.LastCheckinAt,
		HasRisk:            req.HasRisk,
		IsPaused:           req.IsPaused,
		PlanPriorityLevel:  req.PlanPriorityLevel,
		UpdatedAt:          h.Now().UTC(),
	}
	if err := h.Store.SaveConversation(r.Context(), conv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save conversation", err)
		return
	}

	ranked := inbox.Rank([]inbox.Conversation{conv}, h.Inbox, h.Now())
	writeJSON(w, http.StatusOK, toInboxItemDTO(ranked[0]))
}

// GetInbox returns a cast's conversations, highest priority first.
// GET /api/casts/{id}/inbox
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request) {
	castID := generic.CastID(chi.URLParam(r, "id"))

	convs, err := h.Store.ListConversationsByCast(r.Context(), castID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list conversations", err)
		return
	}

	ranked := inbox.Rank(convs, h.Inbox, h.Now())
	writeJSON(w, http.StatusOK, lo.Map(ranked, func(item inbox.Ranked, _ int) InboxItemDTO {
		return toInboxItemDTO(item)
	}))
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// RunSettlement runs the payout batch for a period.
// POST /api/settlements/run
func (h *Handler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	var req RunSettlementRequest
	// An empty body settles the previous month.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period := generic.PreviousMonth(h.Now())
	if req.PeriodStart != "" || req.PeriodEnd != "" {
		start, err := generic.ParseDate(req.PeriodStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period_start (use YYYY-MM-DD)", err)
			return
		}
		end, err := generic.ParseDate(req.PeriodEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period_end (use YYYY-MM-DD)", err)
			return
		}
		period = generic.Period{Start: start, End: end}
	}

	run, err := h.Settlement.Run(r.Context(), period)
	if err != nil {
		h.writeDomainError(w, "Failed to run settlement", err)
		return
	}

	h.logRun("settlement run completed", run)
	writeJSON(w, http.StatusCreated, toRunDTO(*run))
}

// ListSettlementRuns returns run headers, newest first.
// GET /api/settlements
func (h *Handler) ListSettlementRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListSettlementRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settlement runs", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(runs, func(s settlement.RunSummary, _ int) SettlementRunDTO {
		return toRunSummaryDTO(s)
	}))
}

func (h *Handler) logRun(msg string, run *settlement.Run) {
	h.Logger.Info(msg,
		"run_id", run.ID,
		"period", run.Period.String(),
		"lines", len(run.Result.Lines),
		"unmatched", len(run.Result.Unmatched),
		"total_payout", run.Result.TotalPayout().Int64(),
	)
	for _, u := range run.Result.Unmatched {
		h.Logger.Warn("gift send has no payout rule",
			"run_id", run.ID,
			"gift_send_id", u.ID,
			"cast_id", u.CastID,
			"gift_id", u.GiftID,
			"occurred_on", u.OccurredOn().String(),
		)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// writeDomainError maps engine errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var insufficient *generic.InsufficientBalanceError
	switch {
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
