package memory_test

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
	"github.com/warp/concierge-engine/store/memory"
)

func TestMemoryStore_RulesKeepInsertionOrder(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for _, id := range []generic.RuleID{"z", "a", "m"} {
		require.NoError(t, store.SavePayoutRule(ctx, settlement.PayoutRule{
			ID: id, ScopeType: settlement.ScopeGlobal, Percent: decimal.NewFromInt(10), EffectiveFrom: "2024-01-01", IsActive: true,
		}))
	}
	require.NoError(t, store.DeactivatePayoutRule(ctx, "a"))

	rules, err := store.ListPayoutRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, generic.RuleID("z"), rules[0].ID)
	assert.False(t, rules[1].IsActive)

	assert.ErrorIs(t, store.DeactivatePayoutRule(ctx, "nope"), generic.ErrNotFound)
	assert.ErrorIs(t, store.SavePayoutRule(ctx, rules[0]), generic.ErrDuplicateIdempotencyKey)
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SavePayoutRule(ctx, settlement.PayoutRule{ID: "r", IsActive: true}))

	rules, err := store.ListPayoutRules(ctx)
	require.NoError(t, err)
	rules[0].IsActive = false

	again, err := store.ListPayoutRules(ctx)
	require.NoError(t, err)
	assert.True(t, again[0].IsActive)
}

func TestMemoryStore_Ledger(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e1", UserID: "u1", Delta: 100, IdempotencyKey: "k"}))
	assert.ErrorIs(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e2", UserID: "u1", Delta: 100, IdempotencyKey: "k"}), generic.ErrDuplicateIdempotencyKey)
	require.NoError(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e3", UserID: "u1", Delta: -30}))

	entries, err := store.LoadEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), points.CalculateBalance(entries))

	exists, err := store.EntryExists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStore_WithTxRollsBackOnError(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.AppendEntry(ctx, points.LedgerEntry{ID: "e0", UserID: "u1", Delta: 1000}))

	err := store.WithTx(ctx, func(tx points.Tx) error {
		require.NoError(t, tx.AppendEntry(ctx, points.LedgerEntry{ID: "e1", UserID: "u1", Delta: -500, IdempotencyKey: "k1"}))
		require.NoError(t, tx.SaveGiftSend(ctx, settlement.GiftSend{ID: "s1", OccurredAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	entries, err := store.LoadEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), points.CalculateBalance(entries))
	exists, err := store.EntryExists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists)

	march := generic.Period{Start: generic.MustParseDate("2024-03-01"), End: generic.MustParseDate("2024-03-31")}
	sends, err := store.ListGiftSends(ctx, march)
	require.NoError(t, err)
	assert.Empty(t, sends)
}

func TestMemoryStore_GiftSendsByJSTPeriod(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	// Saved out of order; 15:00 UTC on March 31 is April 1 JST
	require.NoError(t, store.SaveGiftSend(ctx, settlement.GiftSend{ID: "late", OccurredAt: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, store.SaveGiftSend(ctx, settlement.GiftSend{ID: "early", OccurredAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, store.SaveGiftSend(ctx, settlement.GiftSend{ID: "april", OccurredAt: time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)}))

	march := generic.Period{Start: generic.MustParseDate("2024-03-01"), End: generic.MustParseDate("2024-03-31")}
	sends, err := store.ListGiftSends(ctx, march)
	require.NoError(t, err)

	require.Len(t, sends, 2)
	assert.Equal(t, "early", sends[0].ID)
	assert.Equal(t, "late", sends[1].ID)
}

func TestMemoryStore_ConversationsByCast(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u2", CastID: "c1"}))
	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u1", CastID: "c1"}))
	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u3", CastID: "c2"}))
	require.NoError(t, store.SaveConversation(ctx, inbox.Conversation{UserID: "u2", CastID: "c1", HasRisk: true}))

	convs, err := store.ListConversationsByCast(ctx, "c1")
	require.NoError(t, err)

	require.Len(t, convs, 2)
	assert.Equal(t, generic.UserID("u1"), convs[0].UserID)
	assert.True(t, convs[1].HasRisk)
}

func TestMemoryStore_SettlementRunsNewestFirst(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveSettlementRun(ctx, settlement.Run{ID: "r1"}))
	require.NoError(t, store.SaveSettlementRun(ctx, settlement.Run{ID: "r2"}))

	runs, err := store.ListSettlementRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
}
