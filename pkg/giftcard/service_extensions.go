package giftcard

import "context"

// Lookup fetches a card by id. Soft-deleted cards are misses unless
// includeDeleted is set.
func (service *Service) Lookup(ctx context.Context, cardID CardID, includeDeleted bool) (Card, error) {
	return service.store.GetCard(ctx, cardID, includeDeleted)
}

// LookupByCode fetches a card by redemption code.
func (service *Service) LookupByCode(ctx context.Context, code Code, includeDeleted bool) (Card, error) {
	return service.store.GetCardByCode(ctx, code, includeDeleted)
}

// ListOrder selects the listing comparator.
type ListOrder string

const (
	// ListOrderExpiration is the default: most recent expiration first.
	ListOrderExpiration ListOrder = "expiration"
	// ListOrderStatus groups active before redeemed before expired,
	// ties broken by descending expiration.
	ListOrderStatus ListOrder = "status"
)

// ListCards returns cards matching the query in the requested order.
func (service *Service) ListCards(ctx context.Context, query ListQuery, order ListOrder) ([]Card, error) {
	if query.NowUnixUTC == 0 {
		query.NowUnixUTC = service.nowFn()
	}
	cards, err := service.store.ListCards(ctx, query)
	if err != nil {
		return nil, err
	}
	switch order {
	case ListOrderStatus:
		SortCards(cards, CompareByStatusThenExpiration(query.NowUnixUTC))
	case ListOrderExpiration, "":
		SortCards(cards, CompareByExpiration)
	default:
		return nil, ErrInvalidListQuery
	}
	return cards, nil
}

// ListTransactions returns the card's ledger in chronological order.
func (service *Service) ListTransactions(ctx context.Context, cardID CardID) ([]Transaction, error) {
	if _, err := service.store.GetCard(ctx, cardID, true); err != nil {
		return nil, err
	}
	return service.store.ListTransactions(ctx, cardID)
}

// Calculator returns the card's owned calculator configuration.
func (service *Service) Calculator(ctx context.Context, cardID CardID) (Calculator, error) {
	if _, err := service.store.GetCard(ctx, cardID, true); err != nil {
		return Calculator{}, err
	}
	return service.store.GetCalculator(ctx, cardID)
}

// Reconcile recomputes the ledger sum and verifies
// original_value + sum(amounts) == current_value.
func (service *Service) Reconcile(ctx context.Context, cardID CardID) error {
	operationError := service.reconcileChecked(ctx, cardID)
	service.logOperation(ctx, OperationLog{
		Operation: operationReconcile,
		CardID:    cardID,
		Error:     operationError,
	})
	return operationError
}

func (service *Service) reconcileChecked(ctx context.Context, cardID CardID) error {
	card, err := service.store.GetCard(ctx, cardID, true)
	if err != nil {
		return err
	}
	sum, err := service.store.SumTransactions(ctx, cardID)
	if err != nil {
		return err
	}
	if card.OriginalValueCents.Int64()+sum != card.CurrentValueCents.Int64() {
		return WrapError(operationReconcile, "ledger", "drift", ErrLedgerDrift)
	}
	return nil
}
