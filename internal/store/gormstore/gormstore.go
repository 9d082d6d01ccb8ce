package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/giftcard/pkg/giftcard"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode  = "23505"
	sqliteConstraintCode   = 19
	defaultPreferencesJSON = "{}"
	errorOperationStore    = "store"
	errorSubjectCard       = "card"
	errorSubjectCode       = "code"
	errorSubjectOwner      = "owner"
	errorSubjectBalance    = "balance"
	errorSubjectLedger     = "ledger"
	errorSubjectCalculator = "calculator"
	errorCodeCreate        = "create"
	errorCodeGet           = "get"
	errorCodeList          = "list"
	errorCodeLookup        = "lookup"
	errorCodeBind          = "bind"
	errorCodeUpdate        = "update"
	errorCodeInsert        = "insert"
	errorCodeSum           = "sum"
	errorCodeDelete        = "delete"
	errorCodeRestore       = "restore"
	errorCodeDuplicate     = "duplicate"
	errorCodeInvalid       = "invalid"
)

// Store implements giftcard.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate prepares the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&GiftCard{}, &GiftCardTransaction{}, &Calculator{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore giftcard.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) CreateCard(ctx context.Context, card giftcard.Card, calculator giftcard.Calculator) error {
	row := cardRow(card)
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectCode, errorCodeDuplicate, giftcard.ErrCodeCollision)
	}
	if err != nil {
		return wrapStoreError(errorSubjectCard, errorCodeCreate, err)
	}
	calculatorRow := Calculator{
		CalculatorID: calculator.CalculatorID,
		GiftCardID:   calculator.CardID.String(),
		Type:         calculator.Type,
		Preferences:  datatypesJSON(calculator.PreferencesJSON),
	}
	if err := store.db.WithContext(ctx).Create(&calculatorRow).Error; err != nil {
		return wrapStoreError(errorSubjectCalculator, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetCard(ctx context.Context, cardID giftcard.CardID, includeDeleted bool) (giftcard.Card, error) {
	query := store.db.WithContext(ctx).Where("card_id = ?", cardID.String())
	if !includeDeleted {
		query = query.Where("deleted_at is null")
	}
	var row GiftCard
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeGet, giftcard.ErrCardNotFound)
		}
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeGet, err)
	}
	return mapCard(row)
}

func (store *Store) GetCardByCode(ctx context.Context, code giftcard.Code, includeDeleted bool) (giftcard.Card, error) {
	query := store.db.WithContext(ctx).Where("code = ?", code.String())
	if !includeDeleted {
		query = query.Where("deleted_at is null")
	}
	var row GiftCard
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeLookup, giftcard.ErrCardNotFound)
		}
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeLookup, err)
	}
	return mapCard(row)
}

func (store *Store) GetCardForUpdate(ctx context.Context, cardID giftcard.CardID) (giftcard.Card, error) {
	var row GiftCard
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("card_id = ? and deleted_at is null", cardID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeGet, giftcard.ErrCardNotFound)
		}
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeGet, err)
	}
	return mapCard(row)
}

func (store *Store) CodeExists(ctx context.Context, code giftcard.Code) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&GiftCard{}).
		Where("code = ?", code.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectCode, errorCodeLookup, err)
	}
	return count > 0, nil
}

// BindOwner assigns an owner only when the card is still unowned.
// Returns false when another order claimed the card first.
func (store *Store) BindOwner(ctx context.Context, cardID giftcard.CardID, owner giftcard.UserID) (bool, error) {
	ownerValue := owner.String()
	result := store.db.WithContext(ctx).
		Model(&GiftCard{}).
		Where("card_id = ? and deleted_at is null and user_id is null", cardID.String()).
		Update("user_id", &ownerValue)
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectOwner, errorCodeBind, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// UpdateCurrentValue moves the balance from a known value to a new
// one. A mismatch means a concurrent debit won.
func (store *Store) UpdateCurrentValue(ctx context.Context, cardID giftcard.CardID, from giftcard.AmountCents, to giftcard.AmountCents) error {
	result := store.db.WithContext(ctx).
		Model(&GiftCard{}).
		Where("card_id = ? and deleted_at is null and current_value_cents = ?", cardID.String(), from.Int64()).
		Update("current_value_cents", to.Int64())
	if result.Error != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected != 1 {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, giftcard.ErrBalanceConflict)
	}
	return nil
}

func (store *Store) UpdateContact(ctx context.Context, cardID giftcard.CardID, owner giftcard.UserID, email giftcard.EmailAddress, note string) error {
	var ownerValue *string
	if !owner.IsZero() {
		value := owner.String()
		ownerValue = &value
	}
	result := store.db.WithContext(ctx).
		Model(&GiftCard{}).
		Where("card_id = ? and deleted_at is null", cardID.String()).
		Updates(map[string]interface{}{
			"user_id": ownerValue,
			"email":   email.String(),
			"note":    note,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectOwner, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected != 1 {
		return wrapStoreError(errorSubjectOwner, errorCodeUpdate, giftcard.ErrCardNotFound)
	}
	return nil
}

func (store *Store) InsertTransaction(ctx context.Context, transaction giftcard.Transaction) error {
	row := GiftCardTransaction{
		TransactionID: transaction.TransactionID,
		GiftCardID:    transaction.CardID.String(),
		OrderID:       transaction.OrderID.String(),
		AmountCents:   transaction.AmountCents.Int64(),
		CreatedAt:     time.Unix(transaction.CreatedUnixUTC, 0).UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectLedger, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) SumTransactions(ctx context.Context, cardID giftcard.CardID) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&GiftCardTransaction{}).
		Select("coalesce(sum(amount_cents),0) as total").
		Where("gift_card_id = ?", cardID.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectLedger, errorCodeSum, err)
	}
	return sum.Total, nil
}

func (store *Store) ListTransactions(ctx context.Context, cardID giftcard.CardID) ([]giftcard.Transaction, error) {
	var rows []GiftCardTransaction
	err := store.db.WithContext(ctx).
		Where("gift_card_id = ?", cardID.String()).
		Order("created_at asc, transaction_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectLedger, errorCodeList, err)
	}
	transactions := make([]giftcard.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *Store) GetCalculator(ctx context.Context, cardID giftcard.CardID) (giftcard.Calculator, error) {
	var row Calculator
	err := store.db.WithContext(ctx).
		Where("gift_card_id = ?", cardID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return giftcard.Calculator{}, wrapStoreError(errorSubjectCalculator, errorCodeGet, giftcard.ErrCardNotFound)
		}
		return giftcard.Calculator{}, wrapStoreError(errorSubjectCalculator, errorCodeGet, err)
	}
	cardRef, err := giftcard.NewCardID(row.GiftCardID)
	if err != nil {
		return giftcard.Calculator{}, wrapStoreError(errorSubjectCalculator, errorCodeInvalid, err)
	}
	return giftcard.Calculator{
		CalculatorID:    row.CalculatorID,
		CardID:          cardRef,
		Type:            row.Type,
		PreferencesJSON: string(row.Preferences),
	}, nil
}

func (store *Store) SoftDeleteCard(ctx context.Context, cardID giftcard.CardID, atUnixUTC int64) error {
	deletedAt := time.Unix(atUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&GiftCard{}).
		Where("card_id = ? and deleted_at is null", cardID.String()).
		Update("deleted_at", &deletedAt)
	if result.Error != nil {
		return wrapStoreError(errorSubjectCard, errorCodeDelete, result.Error)
	}
	if result.RowsAffected != 1 {
		return wrapStoreError(errorSubjectCard, errorCodeDelete, giftcard.ErrCardNotFound)
	}
	return nil
}

func (store *Store) RestoreCard(ctx context.Context, cardID giftcard.CardID) error {
	result := store.db.WithContext(ctx).
		Model(&GiftCard{}).
		Where("card_id = ? and deleted_at is not null", cardID.String()).
		Update("deleted_at", nil)
	if result.Error != nil {
		return wrapStoreError(errorSubjectCard, errorCodeRestore, result.Error)
	}
	if result.RowsAffected != 1 {
		return wrapStoreError(errorSubjectCard, errorCodeRestore, giftcard.ErrCardNotFound)
	}
	return nil
}

func (store *Store) ListCards(ctx context.Context, query giftcard.ListQuery) ([]giftcard.Card, error) {
	builder := store.db.WithContext(ctx).Model(&GiftCard{})
	if !query.IncludeDeleted {
		builder = builder.Where("deleted_at is null")
	}
	if !query.OwnerID.IsZero() {
		builder = builder.Where("user_id = ?", query.OwnerID.String())
	}
	if query.OnlyActive {
		at := time.Unix(query.NowUnixUTC, 0).UTC()
		builder = builder.Where("expiration_date > ? and current_value_cents > 0", at)
	}
	if query.Limit > 0 {
		builder = builder.Limit(query.Limit)
	}
	var rows []GiftCard
	if err := builder.Order("expiration_date desc").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectCard, errorCodeList, err)
	}
	cards := make([]giftcard.Card, 0, len(rows))
	for _, row := range rows {
		card, err := mapCard(row)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

type sqlSum struct {
	Total int64
}

func cardRow(card giftcard.Card) GiftCard {
	row := GiftCard{
		CardID:             card.CardID.String(),
		Code:               card.Code.String(),
		OriginalValueCents: card.OriginalValueCents.Int64(),
		CurrentValueCents:  card.CurrentValueCents.Int64(),
		Email:              card.Email.String(),
		Name:               card.Name,
		Note:               card.Note,
		ExpirationDate:     time.Unix(card.ExpiresAtUnixUTC, 0).UTC(),
		CreatedAt:          time.Unix(card.CreatedUnixUTC, 0).UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if !card.OwnerID.IsZero() {
		value := card.OwnerID.String()
		row.UserID = &value
	}
	if card.VariantID != "" {
		value := card.VariantID
		row.VariantID = &value
	}
	if card.LineItemID != "" {
		value := card.LineItemID
		row.LineItemID = &value
	}
	if card.DeletedUnixUTC != 0 {
		value := time.Unix(card.DeletedUnixUTC, 0).UTC()
		row.DeletedAt = &value
	}
	return row
}

func mapCard(row GiftCard) (giftcard.Card, error) {
	cardID, err := giftcard.NewCardID(row.CardID)
	if err != nil {
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
	}
	code, err := giftcard.NewCode(row.Code)
	if err != nil {
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
	}
	email, err := giftcard.NewEmailAddress(row.Email)
	if err != nil {
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
	}
	card := giftcard.Card{
		CardID:             cardID,
		Code:               code,
		OriginalValueCents: giftcard.AmountCents(row.OriginalValueCents),
		CurrentValueCents:  giftcard.AmountCents(row.CurrentValueCents),
		Email:              email,
		Name:               row.Name,
		Note:               row.Note,
		ExpiresAtUnixUTC:   row.ExpirationDate.Unix(),
		CreatedUnixUTC:     row.CreatedAt.Unix(),
		DeletedUnixUTC:     timeOrZero(row.DeletedAt),
	}
	if row.UserID != nil {
		owner, err := giftcard.NewUserID(*row.UserID)
		if err != nil {
			return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
		}
		card.OwnerID = owner
	}
	if row.VariantID != nil {
		card.VariantID = *row.VariantID
	}
	if row.LineItemID != nil {
		card.LineItemID = *row.LineItemID
	}
	return card, nil
}

func mapTransaction(row GiftCardTransaction) (giftcard.Transaction, error) {
	cardID, err := giftcard.NewCardID(row.GiftCardID)
	if err != nil {
		return giftcard.Transaction{}, err
	}
	orderID, err := giftcard.NewOrderID(row.OrderID)
	if err != nil {
		return giftcard.Transaction{}, err
	}
	return giftcard.Transaction{
		TransactionID:  row.TransactionID,
		CardID:         cardID,
		OrderID:        orderID,
		AmountCents:    giftcard.AmountCents(row.AmountCents),
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultPreferencesJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func wrapStoreError(subject string, code string, err error) error {
	return giftcard.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
