package giftcard

import "context"

// OrderState is the purchasing order's lifecycle state as reported by
// the order collaborator.
type OrderState string

const (
	OrderStateComplete       OrderState = "complete"
	OrderStateAwaitingReturn OrderState = "awaiting_return"
	OrderStateReturned       OrderState = "returned"
)

// Modifiable reports whether the order can still accept an apply.
// Completed and returned orders cannot.
func (state OrderState) Modifiable() bool {
	switch state {
	case OrderStateComplete, OrderStateAwaitingReturn, OrderStateReturned:
		return false
	default:
		return true
	}
}

// HasTotal exposes the order's aggregate total.
type HasTotal interface {
	TotalCents() AmountCents
}

// HasOwner exposes the order's optional owner identity.
type HasOwner interface {
	OwnerID() (UserID, bool)
}

// AdjustmentWriter is the write target for the discount this core
// produces. Upserting by originator keeps re-apply idempotent.
type AdjustmentWriter interface {
	UpsertAdjustment(ctx context.Context, adjustment Adjustment) error
}

// Order is the capability surface the redemption protocol needs from
// the purchasing order. The order itself is an external collaborator.
type Order interface {
	HasTotal
	HasOwner
	AdjustmentWriter
	OrderID() OrderID
	State() OrderState
}

// Adjustment is the single discount line apply writes to an order.
// Mandatory adjustments survive order recalculation.
type Adjustment struct {
	OriginatorID   CardID
	OriginatorType string
	Label          string
	AmountCents    AmountCents
	Mandatory      bool
}
