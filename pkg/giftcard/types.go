package giftcard

import (
	"context"
	"fmt"
	"strings"
)

// AmountCents is an integer currency in cents.
type AmountCents int64

// NewAmountCents validates a non-negative amount.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cent value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// Negated returns the additive inverse.
func (amount AmountCents) Negated() AmountCents {
	return -amount
}

// CardID identifies a gift card.
type CardID struct {
	value string
}

// NewCardID validates and normalizes a card id.
func NewCardID(raw string) (CardID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CardID{}, fmt.Errorf("%w: empty value", ErrInvalidCardID)
	}
	return CardID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id CardID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id CardID) IsZero() bool {
	return id.value == ""
}

// OrderID identifies the purchasing order a redemption references.
type OrderID struct {
	value string
}

// NewOrderID validates and normalizes an order id.
func NewOrderID(raw string) (OrderID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return OrderID{}, fmt.Errorf("%w: empty value", ErrInvalidOrderID)
	}
	return OrderID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id OrderID) String() string {
	return id.value
}

// UserID identifies a card owner. The zero value means the card is unowned.
type UserID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the card has no owner.
func (id UserID) IsZero() bool {
	return id.value == ""
}

// Code is a unique redemption code. Generated once at creation, immutable after.
type Code struct {
	value string
}

// NewCode validates and normalizes a redemption code.
func NewCode(raw string) (Code, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Code{}, fmt.Errorf("%w: empty value", ErrInvalidCode)
	}
	return Code{value: normalized}, nil
}

// String returns the normalized code.
func (code Code) String() string {
	return code.value
}

// EmailAddress is a contact address used for ownership lookup and transfer.
type EmailAddress struct {
	value string
}

// NewEmailAddress validates and normalizes a contact address.
func NewEmailAddress(raw string) (EmailAddress, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return EmailAddress{}, fmt.Errorf("%w: empty value", ErrInvalidEmail)
	}
	if !strings.Contains(normalized, "@") {
		return EmailAddress{}, fmt.Errorf("%w: missing @", ErrInvalidEmail)
	}
	return EmailAddress{value: normalized}, nil
}

// String returns the normalized address.
func (address EmailAddress) String() string {
	return address.value
}

// Card is the balance-bearing entity.
type Card struct {
	CardID             CardID
	Code               Code
	OriginalValueCents AmountCents
	CurrentValueCents  AmountCents
	Email              EmailAddress
	Name               string
	Note               string
	OwnerID            UserID
	VariantID          string
	LineItemID         string
	ExpiresAtUnixUTC   int64
	CreatedUnixUTC     int64
	DeletedUnixUTC     int64
}

// Deleted reports whether the card is soft-deleted.
func (card Card) Deleted() bool {
	return card.DeletedUnixUTC != 0
}

// Expired reports whether the card is past its expiration date.
func (card Card) Expired(nowUnixUTC int64) bool {
	return nowUnixUTC > card.ExpiresAtUnixUTC
}

// Status derives the lifecycle state at the given instant.
func (card Card) Status(nowUnixUTC int64) Status {
	return StatusOf(card.CurrentValueCents, card.ExpiresAtUnixUTC, nowUnixUTC)
}

// Transaction is a single immutable line in a card's ledger.
// Debits carry negative amounts.
type Transaction struct {
	TransactionID  string
	CardID         CardID
	OrderID        OrderID
	AmountCents    AmountCents
	CreatedUnixUTC int64
}

// Calculator is the owned configuration mapping card value to an order
// discount. Its identity must survive soft delete and restore.
type Calculator struct {
	CalculatorID    string
	CardID          CardID
	Type            string
	PreferencesJSON string
}

// ListQuery selects cards for listing and reporting.
type ListQuery struct {
	OwnerID        UserID
	OnlyActive     bool
	IncludeDeleted bool
	NowUnixUTC     int64
	Limit          int
}

// Store is the persistence contract used by Service.
// Both gormstore and pgstore implement it.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	CreateCard(ctx context.Context, card Card, calculator Calculator) error
	GetCard(ctx context.Context, cardID CardID, includeDeleted bool) (Card, error)
	GetCardByCode(ctx context.Context, code Code, includeDeleted bool) (Card, error)
	GetCardForUpdate(ctx context.Context, cardID CardID) (Card, error)
	CodeExists(ctx context.Context, code Code) (bool, error)
	BindOwner(ctx context.Context, cardID CardID, owner UserID) (bool, error)
	UpdateCurrentValue(ctx context.Context, cardID CardID, from AmountCents, to AmountCents) error
	UpdateContact(ctx context.Context, cardID CardID, owner UserID, email EmailAddress, note string) error
	InsertTransaction(ctx context.Context, transaction Transaction) error
	SumTransactions(ctx context.Context, cardID CardID) (int64, error)
	ListTransactions(ctx context.Context, cardID CardID) ([]Transaction, error)
	GetCalculator(ctx context.Context, cardID CardID) (Calculator, error)
	SoftDeleteCard(ctx context.Context, cardID CardID, atUnixUTC int64) error
	RestoreCard(ctx context.Context, cardID CardID) error
	ListCards(ctx context.Context, query ListQuery) ([]Card, error)
}
