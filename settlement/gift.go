package settlement

import "github.com/warp/concierge-engine/generic"

// Gift is a catalog item users can send to casts.
// One point is one yen excluding tax, so the price is also the payout base.
type Gift struct {
	ID          generic.GiftID
	Name        string
	Category    generic.GiftCategory
	PricePoints int64
	IsActive    bool
}

// AmountExclTax is the settlement base of one send of this gift.
func (g Gift) AmountExclTax() generic.Yen {
	return generic.Yen(g.PricePoints)
}
