// Package memory provides an in-memory Store implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/inbox"
	"github.com/warp/concierge-engine/points"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps every record in maps guarded by one lock.
type Store struct {
	mu            sync.RWMutex
	rules         []settlement.PayoutRule
	gifts         map[generic.GiftID]settlement.Gift
	entries       map[generic.UserID][]points.LedgerEntry
	idempotency   map[string]bool
	sends         []settlement.GiftSend
	conversations map[generic.UserID]inbox.Conversation
	runs          []settlement.Run
}

// Compile-time interface checks
var (
	_ points.TxStore        = (*Store)(nil)
	_ settlement.Repository = (*Store)(nil)
)

func New() *Store {
	return &Store{
		gifts:         make(map[generic.GiftID]settlement.Gift),
		entries:       make(map[generic.UserID][]points.LedgerEntry),
		idempotency:   make(map[string]bool),
		conversations: make(map[generic.UserID]inbox.Conversation),
	}
}

// Close is a no-op.
func (m *Store) Close() error { return nil }

// =============================================================================
// PAYOUT RULES
// =============================================================================

func (m *Store) SavePayoutRule(_ context.Context, r settlement.PayoutRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.rules {
		if existing.ID == r.ID {
			return fmt.Errorf("payout rule %s already exists: %w", r.ID, generic.ErrDuplicateIdempotencyKey)
		}
	}
	m.rules = append(m.rules, r)
	return nil
}

// ListPayoutRules returns rules in insertion order.
func (m *Store) ListPayoutRules(_ context.Context) ([]settlement.PayoutRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]settlement.PayoutRule, len(m.rules))
	copy(result, m.rules)
	return result, nil
}

func (m *Store) DeactivatePayoutRule(_ context.Context, id generic.RuleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].IsActive = false
			return nil
		}
	}
	return fmt.Errorf("payout rule %s: %w", id, generic.ErrNotFound)
}

// =============================================================================
// GIFTS
// =============================================================================

func (m *Store) SaveGift(_ context.Context, g settlement.Gift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gifts[g.ID] = g
	return nil
}

func (m *Store) GetGift(_ context.Context, id generic.GiftID) (*settlement.Gift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.gifts[id]
	if !ok {
		return nil, fmt.Errorf("gift %s: %w", id, generic.ErrNotFound)
	}
	return &g, nil
}

func (m *Store) ListGifts(_ context.Context) ([]settlement.Gift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gifts := make([]settlement.Gift, 0, len(m.gifts))
	for _, g := range m.gifts {
		gifts = append(gifts, g)
	}
	sort.Slice(gifts, func(i, j int) bool { return gifts[i].ID < gifts[j].ID })
	return gifts, nil
}

// =============================================================================
// POINT LEDGER
// =============================================================================

// AppendEntry adds a single entry. Append-only.
func (m *Store) AppendEntry(_ context.Context, e points.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntry(e)
}

func (m *Store) LoadEntries(_ context.Context, userID generic.UserID) ([]points.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadEntries(userID), nil
}

func (m *Store) EntryExists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

func (m *Store) appendEntry(e points.LedgerEntry) error {
	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.entries[e.UserID] = append(m.entries[e.UserID], e)
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Store) loadEntries(userID generic.UserID) []points.LedgerEntry {
	result := make([]points.LedgerEntry, len(m.entries[userID]))
	copy(result, m.entries[userID])
	return result
}

// =============================================================================
// GIFT SENDS
// =============================================================================

func (m *Store) SaveGiftSend(_ context.Context, g settlement.GiftSend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, g)
	return nil
}

// ListGiftSends returns sends within period, ordered by time of send.
func (m *Store) ListGiftSends(_ context.Context, period generic.Period) ([]settlement.GiftSend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []settlement.GiftSend
	for _, g := range m.sends {
		if period.Contains(g.OccurredOn()) {
			result = append(result, g)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].OccurredAt.Before(result[j].OccurredAt) })
	return result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock. The ledger and gift
// sends are snapshotted first and restored if fn fails.
func (m *Store) WithTx(_ context.Context, fn func(points.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	entries     map[generic.UserID][]points.LedgerEntry
	idempotency map[string]bool
	sends       []settlement.GiftSend
}

func (m *Store) snapshot() memorySnapshot {
	entries := make(map[generic.UserID][]points.LedgerEntry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = append([]points.LedgerEntry(nil), v...)
	}
	idem := make(map[string]bool, len(m.idempotency))
	for k, v := range m.idempotency {
		idem[k] = v
	}
	return memorySnapshot{
		entries:     entries,
		idempotency: idem,
		sends:       append([]settlement.GiftSend(nil), m.sends...),
	}
}

func (m *Store) restore(s memorySnapshot) {
	m.entries = s.entries
	m.idempotency = s.idempotency
	m.sends = s.sends
}

// txView reads and writes the store directly; the caller holds the lock.
type txView struct {
	m *Store
}

func (tv *txView) AppendEntry(_ context.Context, e points.LedgerEntry) error {
	return tv.m.appendEntry(e)
}

func (tv *txView) LoadEntries(_ context.Context, userID generic.UserID) ([]points.LedgerEntry, error) {
	return tv.m.loadEntries(userID), nil
}

func (tv *txView) EntryExists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.m.idempotency[idempotencyKey], nil
}

func (tv *txView) SaveGiftSend(_ context.Context, g settlement.GiftSend) error {
	tv.m.sends = append(tv.m.sends, g)
	return nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (m *Store) SaveConversation(_ context.Context, c inbox.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.UserID] = c
	return nil
}

// ListConversationsByCast returns a cast's conversations ordered by user ID.
func (m *Store) ListConversationsByCast(_ context.Context, castID generic.CastID) ([]inbox.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []inbox.Conversation
	for _, c := range m.conversations {
		if c.CastID == castID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// =============================================================================
// SETTLEMENT RUNS
// =============================================================================

func (m *Store) SaveSettlementRun(_ context.Context, run settlement.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// ListSettlementRuns returns run headers, newest first.
func (m *Store) ListSettlementRuns(_ context.Context) ([]settlement.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]settlement.RunSummary, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		result = append(result, m.runs[i].Summary())
	}
	return result, nil
}
