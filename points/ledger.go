/*
ledger.go - Append-only point ledger

PURPOSE:
  The point ledger is the immutable source of truth for every user's point
  balance. Purchases credit points, gift sends debit them. Balance is always
  computed by summing entries - there's no separate "balance" field that
  can get out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. IDEMPOTENT: Same idempotency key = same entry (no duplicates)

NEGATIVE BALANCES:
  CalculateBalance never clamps. A negative sum is representable and is
  returned as-is. Debit refuses to overdraw, which is a policy of the gift
  send flow, not of the balance calculation.

EXAMPLE FLOW:
  1. User buys 1000 points:      +1000
  2. Sends a 300-point gift:     -300
  3. Operator correction:        -50

  Ledger: [+1000, -300, -50] = 650 points

SEE ALSO:
  - purchase.go: Point purchase orders with consumption tax
  - store/sqlite/sqlite.go: Persistent Store implementation
  - store/memory/memory.go: In-memory Store implementation
*/
package points

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/settlement"
)

// =============================================================================
// LEDGER ENTRY
// =============================================================================

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryPurchase   EntryType = "purchase"   // Points bought
	EntryGiftSend   EntryType = "gift_send"  // Points spent on a gift
	EntryAdjustment EntryType = "adjustment" // Manual operator correction
	EntryGrant      EntryType = "grant"      // Campaign or subscription bonus
)

// LedgerEntry is a signed point delta. Positive credits, negative debits.
type LedgerEntry struct {
	ID             generic.EntryID
	UserID         generic.UserID
	Delta          int64
	Type           EntryType
	ReferenceID    string
	Reason         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// CalculateBalance sums every delta. An empty ledger is 0. No clamping.
func CalculateBalance(entries []LedgerEntry) int64 {
	return lo.SumBy(entries, func(e LedgerEntry) int64 { return e.Delta })
}

// =============================================================================
// STORE - Persistence for point ledger entries (append-only)
// =============================================================================

// Store handles persistence of ledger entries.
type Store interface {
	// AppendEntry persists an entry. Returns ErrDuplicateIdempotencyKey if the key exists.
	AppendEntry(ctx context.Context, entry LedgerEntry) error

	// LoadEntries returns every entry for a user in insertion order.
	LoadEntries(ctx context.Context, userID generic.UserID) ([]LedgerEntry, error)

	// EntryExists checks if an idempotency key already exists.
	EntryExists(ctx context.Context, idempotencyKey string) (bool, error)
}

// Tx is the store as seen inside one transaction. Writes through it commit
// or roll back together.
type Tx interface {
	Store

	// SaveGiftSend records the gift a debit paid for.
	SaveGiftSend(ctx context.Context, g settlement.GiftSend) error
}

// TxStore is a Store that can run a function atomically.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. Concurrent calls are
	// serialized, so a balance read inside fn stays valid until commit.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger wraps a TxStore with idempotency and balance checks.
type Ledger struct {
	Store TxStore
	Now   func() time.Time
}

// NewLedger creates a ledger using the wall clock.
func NewLedger(store TxStore) *Ledger {
	return &Ledger{Store: store, Now: time.Now}
}

// Append adds an entry, filling ID and CreatedAt when empty.
func (l *Ledger) Append(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	return l.appendTo(ctx, l.Store, entry)
}

// Balance returns the user's current point balance.
func (l *Ledger) Balance(ctx context.Context, userID generic.UserID) (int64, error) {
	return balanceOf(ctx, l.Store, userID)
}

// Debit appends a negative entry of amount points, refusing to overdraw.
// The balance check and the append run in one transaction.
func (l *Ledger) Debit(ctx context.Context, userID generic.UserID, amount int64, entryType EntryType, referenceID, idempotencyKey string) (LedgerEntry, error) {
	var entry LedgerEntry
	err := l.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		entry, err = l.debit(ctx, tx, userID, amount, entryType, referenceID, idempotencyKey)
		return err
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (l *Ledger) appendTo(ctx context.Context, store Store, entry LedgerEntry) (LedgerEntry, error) {
	if entry.IdempotencyKey != "" {
		exists, err := store.EntryExists(ctx, entry.IdempotencyKey)
		if err != nil {
			return LedgerEntry{}, err
		}
		if exists {
			return LedgerEntry{}, generic.ErrDuplicateIdempotencyKey
		}
	}
	if entry.ID == "" {
		entry.ID = generic.EntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.Now().UTC()
	}
	if err := store.AppendEntry(ctx, entry); err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

// debit checks the idempotency key before the balance: a replay of a debit
// that already spent the points is a duplicate, not a shortage.
func (l *Ledger) debit(ctx context.Context, store Store, userID generic.UserID, amount int64, entryType EntryType, referenceID, idempotencyKey string) (LedgerEntry, error) {
	if amount <= 0 {
		return LedgerEntry{}, generic.ErrInvalidAmount
	}

	if idempotencyKey != "" {
		exists, err := store.EntryExists(ctx, idempotencyKey)
		if err != nil {
			return LedgerEntry{}, err
		}
		if exists {
			return LedgerEntry{}, generic.ErrDuplicateIdempotencyKey
		}
	}

	available, err := balanceOf(ctx, store, userID)
	if err != nil {
		return LedgerEntry{}, err
	}
	if available < amount {
		return LedgerEntry{}, &generic.InsufficientBalanceError{
			UserID:    userID,
			Available: available,
			Requested: amount,
		}
	}

	return l.appendTo(ctx, store, LedgerEntry{
		UserID:         userID,
		Delta:          -amount,
		Type:           entryType,
		ReferenceID:    referenceID,
		IdempotencyKey: idempotencyKey,
	})
}

func balanceOf(ctx context.Context, store Store, userID generic.UserID) (int64, error) {
	entries, err := store.LoadEntries(ctx, userID)
	if err != nil {
		return 0, err
	}
	return CalculateBalance(entries), nil
}
