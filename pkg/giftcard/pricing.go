package giftcard

import "context"

// PricingResolver is the read-only pricing collaborator consulted at
// issuance and display. It is never consulted at redemption.
type PricingResolver interface {
	VariantPriceCents(ctx context.Context, variantID string) (AmountCents, error)
	LineItemPriceCents(ctx context.Context, lineItemID string) (unitPriceCents AmountCents, quantity int64, err error)
}

// ResolvePrice resolves a card's price. First match wins: line item
// unit price times quantity, then variant price, then the card's own
// current value.
func ResolvePrice(ctx context.Context, resolver PricingResolver, card Card) (AmountCents, error) {
	if resolver != nil && card.LineItemID != "" {
		unitPrice, quantity, err := resolver.LineItemPriceCents(ctx, card.LineItemID)
		if err != nil {
			return 0, WrapError(operationPrice, "line_item", "lookup", err)
		}
		return AmountCents(unitPrice.Int64() * quantity), nil
	}
	if resolver != nil && card.VariantID != "" {
		price, err := resolver.VariantPriceCents(ctx, card.VariantID)
		if err != nil {
			return 0, WrapError(operationPrice, "variant", "lookup", err)
		}
		return price, nil
	}
	return card.CurrentValueCents, nil
}
