package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/inbox"
	"github.com/warp/concierge-engine/points"
	"github.com/warp/concierge-engine/settlement"
	"github.com/warp/concierge-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// PAYOUT RULE TESTS
// =============================================================================

func TestPayoutRules_RoundTripInInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	to := generic.MustParseDate("2024-12-31")
	rules := []settlement.PayoutRule{
		{
			ID: "z-first", RuleType: settlement.RuleGiftShare, ScopeType: settlement.ScopeCastGift,
			CastID: "cast-a", GiftID: "gift-g", Percent: decimal.RequireFromString("33.33"),
			EffectiveFrom: generic.MustParseDate("2024-01-01"), EffectiveTo: &to, IsActive: true,
		},
		{
			ID: "a-second", RuleType: settlement.RuleGiftShare, ScopeType: settlement.ScopeGlobal,
			Percent: decimal.NewFromInt(50), EffectiveFrom: generic.MustParseDate("2023-06-01"), IsActive: true,
		},
	}
	for _, r := range rules {
		require.NoError(t, store.SavePayoutRule(ctx, r))
	}

	got, err := store.ListPayoutRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, generic.RuleID("z-first"), got[0].ID, "insertion order, not ID order")
	assert.Equal(t, settlement.ScopeCastGift, got[0].ScopeType)
	assert.Equal(t, generic.CastID("cast-a"), got[0].CastID)
	assert.Equal(t, generic.GiftID("gift-g"), got[0].GiftID)
	assert.True(t, decimal.RequireFromString("33.33").Equal(got[0].Percent))
	require.NotNil(t, got[0].EffectiveTo)
	assert.Equal(t, to, *got[0].EffectiveTo)

	assert.Nil(t, got[1].EffectiveTo)
	assert.Equal(t, generic.CastID(""), got[1].CastID)
	assert.True(t, got[1].IsActive)
}

func TestPayoutRules_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	r := settlement.PayoutRule{ID: "r", RuleType: settlement.RuleGiftShare, ScopeType: settlement.ScopeGlobal, EffectiveFrom: "2024-01-01", IsActive: true}

	require.NoError(t, store.SavePayoutRule(ctx, r))

	assert.ErrorIs(t, store.SavePayoutRule(ctx, r), generic.ErrDuplicateIdempotencyKey)
}

func TestPayoutRules_Deactivate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	r := settlement.PayoutRule{ID: "r", RuleType: settlement.RuleGiftShare, ScopeType: settlement.ScopeGlobal, EffectiveFrom: "2024-01-01", IsActive: true}
	require.NoError(t, store.SavePayoutRule(ctx, r))

	require.NoError(t, store.DeactivatePayoutRule(ctx, "r"))

	got, err := store.ListPayoutRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1, "deactivated rules are kept")
	assert.False(t, got[0].IsActive)

	assert.ErrorIs(t, store.DeactivatePayoutRule(ctx, "missing"), generic.ErrNotFound)
}

// =============================================================================
// GIFT TESTS
// =============================================================================

func TestGifts_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGift(ctx, settlement.Gift{ID: "rose", Name: "Rose", Category: "standard", PricePoints: 500, IsActive: true}))
	require.NoError(t, store.SaveGift(ctx, settlement.Gift{ID: "rose", Name: "Red Rose", Category: "standard", PricePoints: 600, IsActive: true}))

	g, err := store.GetGift(ctx, "rose")
	require.NoError(t, err)
	assert.Equal(t, "Red Rose", g.Name)
	assert.Equal(t, int64(600), g.PricePoints)

	gifts, err := store.ListGifts(ctx)
	require.NoError(t, err)
	assert.Len(t, gifts, 1)

	_, err = store.GetGift(ctx, "tulip")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// LEDGER TESTS
// =============================================================================

func TestLedger_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 123, time.UTC)

	entries := []points.LedgerEntry{
		{ID: "e1", UserID: "u1", Delta: 1000, Type: points.EntryPurchase, IdempotencyKey: "k1", CreatedAt: created},
		{ID: "e2", UserID: "u1", Delta: -300, Type: points.EntryGiftSend, ReferenceID: "send-1", CreatedAt: created.Add(time.Minute)},
		{ID: "e3", UserID: "u2", Delta: 50, Type: points.EntryGrant, CreatedAt: created},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendEntry(ctx, e))
	}

	got, err := store.LoadEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, generic.EntryID("e1"), got[0].ID)
	assert.Equal(t, "k1", got[0].IdempotencyKey)
	assert.True(t, created.Equal(got[0].CreatedAt))
	assert.Equal(t, points.EntryGiftSend, got[1].Type)
	assert.Equal(t, "send-1", got[1].ReferenceID)
	assert.Equal(t, "", got[1].IdempotencyKey)
	assert.Equal(t, int64(700), points.CalculateBalance(got))

	exists, err := store.EntryExists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.EntryExists(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLedger_UniqueIdempotencyKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e1", UserID: "u1", Delta: 1, Type: points.EntryGrant, IdempotencyKey: "k"}))
	err := store.AppendEntry(ctx, points.LedgerEntry{ID: "e2", UserID: "u1", Delta: 1, Type: points.EntryGrant, IdempotencyKey: "k"})

	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
}

func TestLedger_EmptyKeysDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e1", UserID: "u1", Delta: 1, Type: points.EntryGrant}))
	require.NoError(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e2", UserID: "u1", Delta: 1, Type: points.EntryGrant}))
}

// =============================================================================
// GIFT SEND TESTS
// =============================================================================

func TestWithTx_CommitsLedgerAndSendTogether(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	march := generic.Period{Start: generic.MustParseDate("2024-03-01"), End: generic.MustParseDate("2024-03-31")}

	err := store.WithTx(ctx, func(tx points.Tx) error {
		if err := tx.AppendEntry(ctx, points.LedgerEntry{ID: "e1", UserID: "u1", Delta: -500, Type: points.EntryGiftSend, IdempotencyKey: "k1"}); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes
		entries, err := tx.LoadEntries(ctx, "u1")
		if err != nil {
			return err
		}
		assert.Len(t, entries, 1)
		return tx.SaveGiftSend(ctx, settlement.GiftSend{ID: "s1", UserID: "u1", OccurredAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)})
	})
	require.NoError(t, err)

	exists, err := store.EntryExists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)
	sends, err := store.ListGiftSends(ctx, march)
	require.NoError(t, err)
	assert.Len(t, sends, 1)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	march := generic.Period{Start: generic.MustParseDate("2024-03-01"), End: generic.MustParseDate("2024-03-31")}

	err := store.WithTx(ctx, func(tx points.Tx) error {
		require.NoError(t, tx.AppendEntry(ctx, points.LedgerEntry{ID: "e1", UserID: "u1", Delta: -500, IdempotencyKey: "k1"}))
		require.NoError(t, tx.SaveGiftSend(ctx, settlement.GiftSend{ID: "s1", UserID: "u1", OccurredAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	entries, err := store.LoadEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	sends, err := store.ListGiftSends(ctx, march)
	require.NoError(t, err)
	assert.Empty(t, sends)
}

func TestGiftSends_FilteredByJSTDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := []time.Time{
		time.Date(2024, 2, 29, 14, 59, 0, 0, time.UTC), // Feb 29 JST
		time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC),  // Mar 1 JST
		time.Date(2024, 3, 31, 14, 59, 0, 0, time.UTC), // Mar 31 JST
		time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC),  // Apr 1 JST
	}
	for i, ts := range at {
		require.NoError(t, store.SaveGiftSend(ctx, settlement.GiftSend{
			ID: string(rune('a' + i)), UserID: "u1", CastID: "c1", GiftID: "g1", GiftCategory: "standard",
			AmountExclTax: 100, OccurredAt: ts,
		}))
	}

	march := generic.Period{Start: generic.MustParseDate("2024-03-01"), End: generic.MustParseDate("2024-03-31")}
	got, err := store.ListGiftSends(ctx, march)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.True(t, at[1].Equal(got[0].OccurredAt))
	assert.Equal(t, generic.Yen(100), got[0].AmountExclTax)
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversations_UpsertKeepsNullTimes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	msg := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u2", CastID: "c1", LastUserMessageAt: &msg, PlanPriorityLevel: 1}))
	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u1", CastID: "c1", HasRisk: true, PlanPriorityLevel: 2}))
	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u3", CastID: "c2", PlanPriorityLevel: 3}))
	// Replace u2
	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u2", CastID: "c1", LastStaffMessageAt: &msg, IsPaused: true, PlanPriorityLevel: 1}))

	got, err := store.ListConversationsByCast(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, generic.UserID("u1"), got[0].UserID)
	assert.True(t, got[0].HasRisk)
	assert.Nil(t, got[0].LastUserMessageAt)

	assert.Equal(t, generic.UserID("u2"), got[1].UserID)
	assert.Nil(t, got[1].LastUserMessageAt)
	require.NotNil(t, got[1].LastStaffMessageAt)
	assert.True(t, msg.Equal(*got[1].LastStaffMessageAt))
	assert.True(t, got[1].IsPaused)
}

// =============================================================================
// SETTLEMENT RUN TESTS
// =============================================================================

func TestSettlementRuns_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	march := generic.Period{Start: generic.MustParseDate("2024-03-01"), End: generic.MustParseDate("2024-03-31")}
	april := generic.Period{Start: generic.MustParseDate("2024-04-01"), End: generic.MustParseDate("2024-04-30")}

	first := settlement.Run{
		ID:        "run-1",
		Period:    march,
		CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Result: settlement.BatchResult{
			Lines: []settlement.Line{
				{GiftSendID: "s1", CastID: "c1", RuleID: "r1", OccurredOn: "2024-03-10", AmountExclTax: 1000, PercentApplied: decimal.NewFromInt(50), PayoutAmount: 500},
				{GiftSendID: "s2", CastID: "c2", RuleID: "r1", OccurredOn: "2024-03-11", AmountExclTax: 333, PercentApplied: decimal.NewFromInt(50), PayoutAmount: 166},
			},
			Unmatched: []settlement.GiftSend{{ID: "s3"}},
		},
	}
	second := settlement.Run{ID: "run-2", Period: april, CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, store.SaveSettlementRun(ctx, first))
	require.NoError(t, store.SaveSettlementRun(ctx, second))

	runs, err := store.ListSettlementRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID, "newest first")
	assert.Equal(t, march, runs[1].Period)
	assert.Equal(t, generic.Yen(666), runs[1].TotalPayout)
	assert.Equal(t, 1, runs[1].UnmatchedCount)
	assert.True(t, first.CreatedAt.Equal(runs[1].CreatedAt))
}
