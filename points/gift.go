package points

import (
	"context"

	"github.com/warp/concierge-engine/settlement"
)

// SendGift debits the gift's price from send.UserID and records the send,
// both in one transaction. Either the user is charged and settlement sees
// the send, or neither happens.
func (l *Ledger) SendGift(ctx context.Context, send settlement.GiftSend, pricePoints int64, idempotencyKey string) (LedgerEntry, error) {
	var entry LedgerEntry
	err := l.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		entry, err = l.debit(ctx, tx, send.UserID, pricePoints, EntryGiftSend, send.ID, idempotencyKey)
		if err != nil {
			return err
		}
		return tx.SaveGiftSend(ctx, send)
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}
