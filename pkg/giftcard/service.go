package giftcard

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Service contains the domain logic over a Store.
type Service struct {
	store                   Store
	nowFn                   func() int64
	logger                  OperationLogger
	pricing                 PricingResolver
	identity                IdentityResolver
	notifier                TransferNotifier
	expirationWindowSeconds int64
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:                   store,
		nowFn:                   now,
		expirationWindowSeconds: int64(DefaultExpirationWindow.Seconds()),
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateInput carries the attributes accepted at card issuance.
// Explicit value pair wins over pricing resolution; a card with
// neither is invalid.
type CreateInput struct {
	Email              EmailAddress
	Name               string
	Note               string
	OwnerID            UserID
	VariantID          string
	LineItemID         string
	OriginalValueCents *AmountCents
	CurrentValueCents  *AmountCents
	ExpiresAtUnixUTC   int64
}

// Create validates the input, resolves initial values, generates the
// redemption code, and persists the card with its calculator.
func (service *Service) Create(ctx context.Context, input CreateInput) (Card, error) {
	card, operationError := service.createCard(ctx, input)
	service.logOperation(ctx, OperationLog{
		Operation: operationCreate,
		CardID:    card.CardID,
		Amount:    card.OriginalValueCents,
		Error:     operationError,
	})
	return card, operationError
}

func (service *Service) createCard(ctx context.Context, input CreateInput) (Card, error) {
	if input.Email == (EmailAddress{}) {
		return Card{}, fmt.Errorf("%w: required", ErrInvalidEmail)
	}
	if strings.TrimSpace(input.Name) == "" {
		return Card{}, fmt.Errorf("%w: required", ErrInvalidName)
	}
	nowUnixUTC := service.nowFn()
	card := Card{
		Email:            input.Email,
		Name:             strings.TrimSpace(input.Name),
		Note:             input.Note,
		OwnerID:          input.OwnerID,
		VariantID:        input.VariantID,
		LineItemID:       input.LineItemID,
		ExpiresAtUnixUTC: input.ExpiresAtUnixUTC,
		CreatedUnixUTC:   nowUnixUTC,
	}
	original, current, err := service.resolveInitialValues(ctx, card, input)
	if err != nil {
		return Card{}, err
	}
	card.OriginalValueCents = original
	card.CurrentValueCents = current
	if card.ExpiresAtUnixUTC == 0 {
		card.ExpiresAtUnixUTC = nowUnixUTC + service.expirationWindowSeconds
	}
	cardID, err := NewCardID(uuid.NewString())
	if err != nil {
		return Card{}, err
	}
	card.CardID = cardID
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		code, codeErr := uniqueCode(ctx, transactionStore)
		if codeErr != nil {
			return codeErr
		}
		card.Code = code
		calculator := Calculator{
			CalculatorID:    uuid.NewString(),
			CardID:          card.CardID,
			Type:            defaultCalculatorType,
			PreferencesJSON: "{}",
		}
		return transactionStore.CreateCard(ctx, card, calculator)
	})
	if operationError != nil {
		return Card{}, operationError
	}
	return card, nil
}

func (service *Service) resolveInitialValues(ctx context.Context, card Card, input CreateInput) (AmountCents, AmountCents, error) {
	if input.OriginalValueCents != nil && input.CurrentValueCents != nil {
		original := *input.OriginalValueCents
		current := *input.CurrentValueCents
		if original < 0 || current < 0 || current > original {
			return 0, 0, fmt.Errorf("%w: require 0 <= current <= original", ErrInvalidValues)
		}
		return original, current, nil
	}
	if input.OriginalValueCents != nil || input.CurrentValueCents != nil {
		return 0, 0, fmt.Errorf("%w: both values must be supplied together", ErrInvalidValues)
	}
	if card.VariantID == "" && card.LineItemID == "" {
		return 0, 0, fmt.Errorf("%w: no values and no price reference", ErrInvalidValues)
	}
	if service.pricing == nil {
		return 0, 0, fmt.Errorf("%w: pricing resolver not configured", ErrInvalidServiceConfig)
	}
	price, err := ResolvePrice(ctx, service.pricing, card)
	if err != nil {
		return 0, 0, err
	}
	if price < 0 {
		return 0, 0, fmt.Errorf("%w: resolved price is negative", ErrInvalidValues)
	}
	return price, price, nil
}

// Apply reserves the card's value against an order. It writes one
// mandatory adjustment of -min(current_value, order total) to the
// order and never touches the balance or the ledger. Re-applying
// replaces the adjustment rather than duplicating it.
func (service *Service) Apply(ctx context.Context, cardID CardID, order Order) error {
	card, err := service.store.GetCard(ctx, cardID, false)
	if err != nil {
		service.logApply(ctx, cardID, order, 0, err)
		return err
	}
	return service.applyCard(ctx, card, order)
}

// ApplyCode is the pre-commit extension point the checkout pipeline
// calls with a raw redemption code.
func (service *Service) ApplyCode(ctx context.Context, rawCode string, order Order) error {
	code, err := NewCode(rawCode)
	if err != nil {
		return err
	}
	card, err := service.store.GetCardByCode(ctx, code, false)
	if err != nil {
		service.logApply(ctx, CardID{}, order, 0, err)
		return err
	}
	return service.applyCard(ctx, card, order)
}

func (service *Service) applyCard(ctx context.Context, card Card, order Order) error {
	discount, operationError := service.applyChecked(ctx, card, order)
	service.logApply(ctx, card.CardID, order, discount, operationError)
	return operationError
}

func (service *Service) applyChecked(ctx context.Context, card Card, order Order) (AmountCents, error) {
	if IsExpired(card.ExpiresAtUnixUTC, service.nowFn()) {
		return 0, ErrExpiredCard
	}
	if !order.State().Modifiable() {
		return 0, ErrOrderNotModifiable
	}
	if err := service.checkAndBindOwner(ctx, &card, order); err != nil {
		return 0, err
	}
	discount := card.CurrentValueCents
	if total := order.TotalCents(); total < discount {
		discount = total
	}
	adjustment := Adjustment{
		OriginatorID:   card.CardID,
		OriginatorType: AdjustmentOriginatorType,
		Label:          adjustmentLabel + " " + card.Code.String(),
		AmountCents:    discount.Negated(),
		Mandatory:      true,
	}
	if err := order.UpsertAdjustment(ctx, adjustment); err != nil {
		return 0, WrapError(operationApply, "order", "adjustment", err)
	}
	return discount, nil
}

// checkAndBindOwner enforces the ownership matrix. An unowned card is
// bound to the order's owner on first use; the bind is compare-and-set
// so two orders cannot both claim the card.
func (service *Service) checkAndBindOwner(ctx context.Context, card *Card, order Order) error {
	orderOwner, orderHasOwner := order.OwnerID()
	if !card.OwnerID.IsZero() {
		if !orderHasOwner || card.OwnerID != orderOwner {
			return ErrInvalidUser
		}
		return nil
	}
	if !orderHasOwner {
		return nil
	}
	bound, err := service.store.BindOwner(ctx, card.CardID, orderOwner)
	if err != nil {
		return err
	}
	if bound {
		card.OwnerID = orderOwner
		return nil
	}
	// Lost the race to another order. Re-read and accept only a
	// same-owner outcome.
	current, err := service.store.GetCard(ctx, card.CardID, false)
	if err != nil {
		return err
	}
	if current.OwnerID != orderOwner {
		return ErrInvalidUser
	}
	card.OwnerID = current.OwnerID
	return nil
}

// Debit settles value against the ledger: one atomic unit decrements
// the balance and appends a transaction. The amount is signed and must
// be non-positive; its absolute value may not exceed the balance.
func (service *Service) Debit(ctx context.Context, cardID CardID, amountCents int64, orderID OrderID) error {
	operationError := service.debitChecked(ctx, cardID, amountCents, orderID)
	service.logOperation(ctx, OperationLog{
		Operation: operationDebit,
		CardID:    cardID,
		OrderID:   orderID,
		Amount:    AmountCents(amountCents),
		Error:     operationError,
	})
	return operationError
}

func (service *Service) debitChecked(ctx context.Context, cardID CardID, amountCents int64, orderID OrderID) error {
	if amountCents > 0 {
		return fmt.Errorf("%w: debit amount must be non-positive", ErrAmountOutOfRange)
	}
	if amountCents == math.MinInt64 {
		return fmt.Errorf("%w: debit amount %d has no representable magnitude", ErrAmountOutOfRange, amountCents)
	}
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		card, err := transactionStore.GetCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		debit := AmountCents(-amountCents)
		if debit > card.CurrentValueCents {
			return fmt.Errorf("%w: debit %d exceeds balance %d", ErrAmountOutOfRange, debit, card.CurrentValueCents)
		}
		remaining := card.CurrentValueCents - debit
		if err := transactionStore.UpdateCurrentValue(ctx, cardID, card.CurrentValueCents, remaining); err != nil {
			return err
		}
		transaction := Transaction{
			TransactionID:  uuid.NewString(),
			CardID:         cardID,
			OrderID:        orderID,
			AmountCents:    AmountCents(amountCents),
			CreatedUnixUTC: service.nowFn(),
		}
		return transactionStore.InsertTransaction(ctx, transaction)
	})
}

func (service *Service) logApply(ctx context.Context, cardID CardID, order Order, discount AmountCents, operationError error) {
	entry := OperationLog{
		Operation: operationApply,
		CardID:    cardID,
		Amount:    discount.Negated(),
		Error:     operationError,
	}
	if order != nil {
		entry.OrderID = order.OrderID()
	}
	service.logOperation(ctx, entry)
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
