package giftcard

import (
	"context"
	"testing"
)

// stubStore is an in-memory Store honoring the same visibility and
// compare-and-set contracts as the real implementations.
type stubStore struct {
	cards        map[string]Card
	calculators  map[string]Calculator
	transactions []Transaction

	codeExistsResponses []bool
	failWith            error
}

func newStubStore() *stubStore {
	return &stubStore{
		cards:       map[string]Card{},
		calculators: map[string]Calculator{},
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.failWith != nil {
		return store.failWith
	}
	return fn(ctx, store)
}

func (store *stubStore) CreateCard(_ context.Context, card Card, calculator Calculator) error {
	if store.failWith != nil {
		return store.failWith
	}
	for _, existing := range store.cards {
		if existing.Code == card.Code {
			return ErrCodeCollision
		}
	}
	store.cards[card.CardID.String()] = card
	store.calculators[card.CardID.String()] = calculator
	return nil
}

func (store *stubStore) GetCard(_ context.Context, cardID CardID, includeDeleted bool) (Card, error) {
	if store.failWith != nil {
		return Card{}, store.failWith
	}
	card, exists := store.cards[cardID.String()]
	if !exists || (card.Deleted() && !includeDeleted) {
		return Card{}, ErrCardNotFound
	}
	return card, nil
}

func (store *stubStore) GetCardByCode(_ context.Context, code Code, includeDeleted bool) (Card, error) {
	for _, card := range store.cards {
		if card.Code == code {
			if card.Deleted() && !includeDeleted {
				return Card{}, ErrCardNotFound
			}
			return card, nil
		}
	}
	return Card{}, ErrCardNotFound
}

func (store *stubStore) GetCardForUpdate(ctx context.Context, cardID CardID) (Card, error) {
	return store.GetCard(ctx, cardID, false)
}

func (store *stubStore) CodeExists(_ context.Context, code Code) (bool, error) {
	if len(store.codeExistsResponses) > 0 {
		response := store.codeExistsResponses[0]
		store.codeExistsResponses = store.codeExistsResponses[1:]
		return response, nil
	}
	for _, card := range store.cards {
		if card.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (store *stubStore) BindOwner(_ context.Context, cardID CardID, owner UserID) (bool, error) {
	card, exists := store.cards[cardID.String()]
	if !exists || card.Deleted() || !card.OwnerID.IsZero() {
		return false, nil
	}
	card.OwnerID = owner
	store.cards[cardID.String()] = card
	return true, nil
}

func (store *stubStore) UpdateCurrentValue(_ context.Context, cardID CardID, from AmountCents, to AmountCents) error {
	card, exists := store.cards[cardID.String()]
	if !exists || card.Deleted() || card.CurrentValueCents != from {
		return ErrBalanceConflict
	}
	card.CurrentValueCents = to
	store.cards[cardID.String()] = card
	return nil
}

func (store *stubStore) UpdateContact(_ context.Context, cardID CardID, owner UserID, email EmailAddress, note string) error {
	card, exists := store.cards[cardID.String()]
	if !exists || card.Deleted() {
		return ErrCardNotFound
	}
	card.OwnerID = owner
	card.Email = email
	card.Note = note
	store.cards[cardID.String()] = card
	return nil
}

func (store *stubStore) InsertTransaction(_ context.Context, transaction Transaction) error {
	store.transactions = append(store.transactions, transaction)
	return nil
}

func (store *stubStore) SumTransactions(_ context.Context, cardID CardID) (int64, error) {
	var sum int64
	for _, transaction := range store.transactions {
		if transaction.CardID == cardID {
			sum += transaction.AmountCents.Int64()
		}
	}
	return sum, nil
}

func (store *stubStore) ListTransactions(_ context.Context, cardID CardID) ([]Transaction, error) {
	var transactions []Transaction
	for _, transaction := range store.transactions {
		if transaction.CardID == cardID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (store *stubStore) GetCalculator(_ context.Context, cardID CardID) (Calculator, error) {
	calculator, exists := store.calculators[cardID.String()]
	if !exists {
		return Calculator{}, ErrCardNotFound
	}
	return calculator, nil
}

func (store *stubStore) SoftDeleteCard(_ context.Context, cardID CardID, atUnixUTC int64) error {
	card, exists := store.cards[cardID.String()]
	if !exists || card.Deleted() {
		return ErrCardNotFound
	}
	card.DeletedUnixUTC = atUnixUTC
	store.cards[cardID.String()] = card
	return nil
}

func (store *stubStore) RestoreCard(_ context.Context, cardID CardID) error {
	card, exists := store.cards[cardID.String()]
	if !exists || !card.Deleted() {
		return ErrCardNotFound
	}
	card.DeletedUnixUTC = 0
	store.cards[cardID.String()] = card
	return nil
}

func (store *stubStore) ListCards(_ context.Context, query ListQuery) ([]Card, error) {
	var cards []Card
	for _, card := range store.cards {
		if card.Deleted() && !query.IncludeDeleted {
			continue
		}
		if !query.OwnerID.IsZero() && card.OwnerID != query.OwnerID {
			continue
		}
		if query.OnlyActive {
			if card.ExpiresAtUnixUTC <= query.NowUnixUTC || card.CurrentValueCents <= 0 {
				continue
			}
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// stubOrder implements Order, capturing upserted adjustments keyed by
// originator the way the order's adjustment collection would.
type stubOrder struct {
	orderID     OrderID
	totalCents  AmountCents
	owner       UserID
	hasOwner    bool
	state       OrderState
	adjustments map[string]Adjustment
	upserts     int
}

func newStubOrder(test *testing.T, orderID string, totalCents int64) *stubOrder {
	test.Helper()
	id := mustOrderID(test, orderID)
	return &stubOrder{
		orderID:     id,
		totalCents:  AmountCents(totalCents),
		state:       OrderState("cart"),
		adjustments: map[string]Adjustment{},
	}
}

func (order *stubOrder) OrderID() OrderID        { return order.orderID }
func (order *stubOrder) TotalCents() AmountCents { return order.totalCents }
func (order *stubOrder) State() OrderState       { return order.state }

func (order *stubOrder) OwnerID() (UserID, bool) {
	return order.owner, order.hasOwner
}

func (order *stubOrder) UpsertAdjustment(_ context.Context, adjustment Adjustment) error {
	order.adjustments[adjustment.OriginatorID.String()] = adjustment
	order.upserts++
	return nil
}

type stubPricing struct {
	variantPrices  map[string]AmountCents
	lineItemPrices map[string]AmountCents
	lineItemCounts map[string]int64
}

func (pricing *stubPricing) VariantPriceCents(_ context.Context, variantID string) (AmountCents, error) {
	price, exists := pricing.variantPrices[variantID]
	if !exists {
		return 0, ErrCardNotFound
	}
	return price, nil
}

func (pricing *stubPricing) LineItemPriceCents(_ context.Context, lineItemID string) (AmountCents, int64, error) {
	price, exists := pricing.lineItemPrices[lineItemID]
	if !exists {
		return 0, 0, ErrCardNotFound
	}
	return price, pricing.lineItemCounts[lineItemID], nil
}

type stubIdentity struct {
	byEmail map[string]UserID
}

func (identity *stubIdentity) LookupByEmail(_ context.Context, address EmailAddress) (UserID, bool, error) {
	owner, exists := identity.byEmail[address.String()]
	return owner, exists, nil
}

type stubNotifier struct {
	transfers []Card
}

func (notifier *stubNotifier) CardTransferred(_ context.Context, card Card, _ EmailAddress) error {
	notifier.transfers = append(notifier.transfers, card)
	return nil
}

func mustNewService(test *testing.T, store Store, nowUnixUTC int64, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return nowUnixUTC }, options...)
	if err != nil {
		test.Fatalf("service init: %v", err)
	}
	return service
}

func mustCardID(test *testing.T, raw string) CardID {
	test.Helper()
	cardID, err := NewCardID(raw)
	if err != nil {
		test.Fatalf("card id %q: %v", raw, err)
	}
	return cardID
}

func mustOrderID(test *testing.T, raw string) OrderID {
	test.Helper()
	orderID, err := NewOrderID(raw)
	if err != nil {
		test.Fatalf("order id %q: %v", raw, err)
	}
	return orderID
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	userID, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id %q: %v", raw, err)
	}
	return userID
}

func mustCode(test *testing.T, raw string) Code {
	test.Helper()
	code, err := NewCode(raw)
	if err != nil {
		test.Fatalf("code %q: %v", raw, err)
	}
	return code
}

func mustEmail(test *testing.T, raw string) EmailAddress {
	test.Helper()
	address, err := NewEmailAddress(raw)
	if err != nil {
		test.Fatalf("email %q: %v", raw, err)
	}
	return address
}

func amountPtr(value int64) *AmountCents {
	amount := AmountCents(value)
	return &amount
}

// seedCard inserts a card with matching calculator directly.
func seedCard(test *testing.T, store *stubStore, card Card) Card {
	test.Helper()
	if card.CardID.IsZero() {
		card.CardID = mustCardID(test, "card-"+card.Code.String())
	}
	store.cards[card.CardID.String()] = card
	store.calculators[card.CardID.String()] = Calculator{
		CalculatorID:    "calc-" + card.CardID.String(),
		CardID:          card.CardID,
		Type:            defaultCalculatorType,
		PreferencesJSON: "{}",
	}
	return card
}
