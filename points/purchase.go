package points

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/settlement"
)

// PurchaseOrder is a point purchase with its tax breakdown.
// One point is credited per yen of the tax-exclusive amount.
type PurchaseOrder struct {
	Entry LedgerEntry
	Tax   settlement.TaxBreakdown
}

// Purchase computes the tax for a point purchase and credits the points.
// The charge itself happens at the payment provider; this records the result.
func (l *Ledger) Purchase(ctx context.Context, userID generic.UserID, amountExclTax generic.Yen, taxRate decimal.Decimal, idempotencyKey string) (PurchaseOrder, error) {
	if amountExclTax <= 0 {
		return PurchaseOrder{}, generic.ErrInvalidAmount
	}

	tax := settlement.CalculateTax(amountExclTax, taxRate)
	entry, err := l.Append(ctx, LedgerEntry{
		UserID:         userID,
		Delta:          tax.AmountExclTax.Int64(),
		Type:           EntryPurchase,
		Reason:         "point purchase (incl. tax " + tax.AmountInclTax.String() + ")",
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return PurchaseOrder{Entry: entry, Tax: tax}, nil
}
