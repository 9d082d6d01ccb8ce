package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/giftcard/pkg/giftcard"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolationCode = "23505"
	errorOperationStore   = "store"
	errorSubjectCard      = "card"
	errorSubjectCode      = "code"
	errorSubjectOwner     = "owner"
	errorSubjectBalance   = "balance"
	errorSubjectLedger    = "ledger"
	errorSubjectCalc      = "calculator"
	errorSubjectTx        = "transaction"
	errorCodeBegin        = "begin"
	errorCodeCommit       = "commit"
	errorCodeCreate       = "create"
	errorCodeGet          = "get"
	errorCodeList         = "list"
	errorCodeLookup       = "lookup"
	errorCodeBind         = "bind"
	errorCodeUpdate       = "update"
	errorCodeInsert       = "insert"
	errorCodeSum          = "sum"
	errorCodeDelete       = "delete"
	errorCodeRestore      = "restore"
	errorCodeDuplicate    = "duplicate"
	errorCodeInvalid      = "invalid"

	sqlCardColumns = `
		card_id::text, code, original_value_cents, current_value_cents,
		email, name, coalesce(note,''),
		coalesce(user_id,''), coalesce(variant_id,''), coalesce(line_item_id,''),
		extract(epoch from expiration_date)::bigint,
		extract(epoch from created_at)::bigint,
		coalesce(extract(epoch from deleted_at)::bigint, 0)
	`

	sqlInsertCard = `
		insert into gift_cards(
			card_id, code, original_value_cents, current_value_cents,
			email, name, note, user_id, variant_id, line_item_id,
			expiration_date, created_at
		)
		values(
			$1, $2, $3, $4, $5, $6, $7,
			nullif($8,''), nullif($9,''), nullif($10,''),
			to_timestamp($11), to_timestamp($12)
		)
	`

	sqlInsertCalculator = `
		insert into gift_card_calculators(calculator_id, gift_card_id, type, preferences)
		values($1, $2, $3, coalesce(nullif($4,''),'{}')::jsonb)
	`

	sqlSelectCardByID = `
		select ` + sqlCardColumns + `
		from gift_cards
		where card_id = $1 and ($2 or deleted_at is null)
	`

	sqlSelectCardByCode = `
		select ` + sqlCardColumns + `
		from gift_cards
		where code = $1 and ($2 or deleted_at is null)
	`

	sqlSelectCardForUpdate = `
		select ` + sqlCardColumns + `
		from gift_cards
		where card_id = $1 and deleted_at is null
		for update
	`

	sqlCodeExists = `
		select exists(select 1 from gift_cards where code = $1)
	`

	sqlBindOwner = `
		update gift_cards
		set user_id = $2
		where card_id = $1 and deleted_at is null and user_id is null
	`

	sqlUpdateCurrentValue = `
		update gift_cards
		set current_value_cents = $3
		where card_id = $1 and deleted_at is null and current_value_cents = $2
	`

	sqlUpdateContact = `
		update gift_cards
		set user_id = nullif($2,''), email = $3, note = $4
		where card_id = $1 and deleted_at is null
	`

	sqlInsertTransaction = `
		insert into gift_card_transactions(transaction_id, gift_card_id, order_id, amount_cents, created_at)
		values($1, $2, $3, $4, to_timestamp($5))
	`

	sqlSumTransactions = `
		select coalesce(sum(amount_cents),0) from gift_card_transactions
		where gift_card_id = $1
	`

	sqlListTransactions = `
		select transaction_id::text, gift_card_id::text, order_id, amount_cents,
			extract(epoch from created_at)::bigint
		from gift_card_transactions
		where gift_card_id = $1
		order by created_at asc, transaction_id asc
	`

	sqlSelectCalculator = `
		select calculator_id::text, gift_card_id::text, type, coalesce(preferences::text,'{}')
		from gift_card_calculators
		where gift_card_id = $1
	`

	sqlSoftDeleteCard = `
		update gift_cards set deleted_at = to_timestamp($2)
		where card_id = $1 and deleted_at is null
	`

	sqlRestoreCard = `
		update gift_cards set deleted_at = null
		where card_id = $1 and deleted_at is not null
	`
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements giftcard.Store using a pgx connection pool.
// A nil pool marks a Store already running inside a transaction.
type Store struct {
	pool   *pgxpool.Pool
	runner querier
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, runner: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore giftcard.Store) error) error {
	if store.pool == nil {
		return fn(ctx, store)
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeBegin, err)
	}
	transactionStore := &Store{runner: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) CreateCard(ctx context.Context, card giftcard.Card, calculator giftcard.Calculator) error {
	_, err := store.runner.Exec(ctx, sqlInsertCard,
		card.CardID.String(),
		card.Code.String(),
		card.OriginalValueCents.Int64(),
		card.CurrentValueCents.Int64(),
		card.Email.String(),
		card.Name,
		card.Note,
		card.OwnerID.String(),
		card.VariantID,
		card.LineItemID,
		card.ExpiresAtUnixUTC,
		card.CreatedUnixUTC,
	)
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectCode, errorCodeDuplicate, giftcard.ErrCodeCollision)
	}
	if err != nil {
		return wrapStoreError(errorSubjectCard, errorCodeCreate, err)
	}
	_, err = store.runner.Exec(ctx, sqlInsertCalculator,
		calculator.CalculatorID,
		calculator.CardID.String(),
		calculator.Type,
		calculator.PreferencesJSON,
	)
	if err != nil {
		return wrapStoreError(errorSubjectCalc, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetCard(ctx context.Context, cardID giftcard.CardID, includeDeleted bool) (giftcard.Card, error) {
	return store.scanCard(store.runner.QueryRow(ctx, sqlSelectCardByID, cardID.String(), includeDeleted), errorCodeGet)
}

func (store *Store) GetCardByCode(ctx context.Context, code giftcard.Code, includeDeleted bool) (giftcard.Card, error) {
	return store.scanCard(store.runner.QueryRow(ctx, sqlSelectCardByCode, code.String(), includeDeleted), errorCodeLookup)
}

func (store *Store) GetCardForUpdate(ctx context.Context, cardID giftcard.CardID) (giftcard.Card, error) {
	return store.scanCard(store.runner.QueryRow(ctx, sqlSelectCardForUpdate, cardID.String()), errorCodeGet)
}

func (store *Store) CodeExists(ctx context.Context, code giftcard.Code) (bool, error) {
	var exists bool
	if err := store.runner.QueryRow(ctx, sqlCodeExists, code.String()).Scan(&exists); err != nil {
		return false, wrapStoreError(errorSubjectCode, errorCodeLookup, err)
	}
	return exists, nil
}

func (store *Store) BindOwner(ctx context.Context, cardID giftcard.CardID, owner giftcard.UserID) (bool, error) {
	tag, err := store.runner.Exec(ctx, sqlBindOwner, cardID.String(), owner.String())
	if err != nil {
		return false, wrapStoreError(errorSubjectOwner, errorCodeBind, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (store *Store) UpdateCurrentValue(ctx context.Context, cardID giftcard.CardID, from giftcard.AmountCents, to giftcard.AmountCents) error {
	tag, err := store.runner.Exec(ctx, sqlUpdateCurrentValue, cardID.String(), from.Int64(), to.Int64())
	if err != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, err)
	}
	if tag.RowsAffected() != 1 {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, giftcard.ErrBalanceConflict)
	}
	return nil
}

func (store *Store) UpdateContact(ctx context.Context, cardID giftcard.CardID, owner giftcard.UserID, email giftcard.EmailAddress, note string) error {
	tag, err := store.runner.Exec(ctx, sqlUpdateContact, cardID.String(), owner.String(), email.String(), note)
	if err != nil {
		return wrapStoreError(errorSubjectOwner, errorCodeUpdate, err)
	}
	if tag.RowsAffected() != 1 {
		return wrapStoreError(errorSubjectOwner, errorCodeUpdate, giftcard.ErrCardNotFound)
	}
	return nil
}

func (store *Store) InsertTransaction(ctx context.Context, transaction giftcard.Transaction) error {
	_, err := store.runner.Exec(ctx, sqlInsertTransaction,
		transaction.TransactionID,
		transaction.CardID.String(),
		transaction.OrderID.String(),
		transaction.AmountCents.Int64(),
		transaction.CreatedUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectLedger, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) SumTransactions(ctx context.Context, cardID giftcard.CardID) (int64, error) {
	var sum int64
	if err := store.runner.QueryRow(ctx, sqlSumTransactions, cardID.String()).Scan(&sum); err != nil {
		return 0, wrapStoreError(errorSubjectLedger, errorCodeSum, err)
	}
	return sum, nil
}

func (store *Store) ListTransactions(ctx context.Context, cardID giftcard.CardID) ([]giftcard.Transaction, error) {
	rows, err := store.runner.Query(ctx, sqlListTransactions, cardID.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectLedger, errorCodeList, err)
	}
	defer rows.Close()
	var transactions []giftcard.Transaction
	for rows.Next() {
		var (
			transactionID string
			cardValue     string
			orderValue    string
			amount        int64
			createdAt     int64
		)
		if err := rows.Scan(&transactionID, &cardValue, &orderValue, &amount, &createdAt); err != nil {
			return nil, wrapStoreError(errorSubjectLedger, errorCodeList, err)
		}
		parsedCardID, err := giftcard.NewCardID(cardValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
		}
		orderID, err := giftcard.NewOrderID(orderValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
		}
		transactions = append(transactions, giftcard.Transaction{
			TransactionID:  transactionID,
			CardID:         parsedCardID,
			OrderID:        orderID,
			AmountCents:    giftcard.AmountCents(amount),
			CreatedUnixUTC: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectLedger, errorCodeList, err)
	}
	return transactions, nil
}

func (store *Store) GetCalculator(ctx context.Context, cardID giftcard.CardID) (giftcard.Calculator, error) {
	var (
		calculatorID string
		cardValue    string
		calcType     string
		preferences  string
	)
	err := store.runner.QueryRow(ctx, sqlSelectCalculator, cardID.String()).Scan(&calculatorID, &cardValue, &calcType, &preferences)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return giftcard.Calculator{}, wrapStoreError(errorSubjectCalc, errorCodeGet, giftcard.ErrCardNotFound)
		}
		return giftcard.Calculator{}, wrapStoreError(errorSubjectCalc, errorCodeGet, err)
	}
	parsedCardID, err := giftcard.NewCardID(cardValue)
	if err != nil {
		return giftcard.Calculator{}, wrapStoreError(errorSubjectCalc, errorCodeInvalid, err)
	}
	return giftcard.Calculator{
		CalculatorID:    calculatorID,
		CardID:          parsedCardID,
		Type:            calcType,
		PreferencesJSON: preferences,
	}, nil
}

func (store *Store) SoftDeleteCard(ctx context.Context, cardID giftcard.CardID, atUnixUTC int64) error {
	tag, err := store.runner.Exec(ctx, sqlSoftDeleteCard, cardID.String(), atUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectCard, errorCodeDelete, err)
	}
	if tag.RowsAffected() != 1 {
		return wrapStoreError(errorSubjectCard, errorCodeDelete, giftcard.ErrCardNotFound)
	}
	return nil
}

func (store *Store) RestoreCard(ctx context.Context, cardID giftcard.CardID) error {
	tag, err := store.runner.Exec(ctx, sqlRestoreCard, cardID.String())
	if err != nil {
		return wrapStoreError(errorSubjectCard, errorCodeRestore, err)
	}
	if tag.RowsAffected() != 1 {
		return wrapStoreError(errorSubjectCard, errorCodeRestore, giftcard.ErrCardNotFound)
	}
	return nil
}

func (store *Store) ListCards(ctx context.Context, query giftcard.ListQuery) ([]giftcard.Card, error) {
	var builder strings.Builder
	builder.WriteString("select ")
	builder.WriteString(sqlCardColumns)
	builder.WriteString(" from gift_cards where 1=1")
	args := []any{}
	if !query.IncludeDeleted {
		builder.WriteString(" and deleted_at is null")
	}
	if !query.OwnerID.IsZero() {
		args = append(args, query.OwnerID.String())
		fmt.Fprintf(&builder, " and user_id = $%d", len(args))
	}
	if query.OnlyActive {
		args = append(args, query.NowUnixUTC)
		fmt.Fprintf(&builder, " and expiration_date > to_timestamp($%d) and current_value_cents > 0", len(args))
	}
	builder.WriteString(" order by expiration_date desc")
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&builder, " limit $%d", len(args))
	}
	rows, err := store.runner.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectCard, errorCodeList, err)
	}
	defer rows.Close()
	var cards []giftcard.Card
	for rows.Next() {
		card, err := scanCardRow(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectCard, errorCodeList, err)
	}
	return cards, nil
}

func (store *Store) scanCard(row pgx.Row, code string) (giftcard.Card, error) {
	card, err := scanCardRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return giftcard.Card{}, wrapStoreError(errorSubjectCard, code, giftcard.ErrCardNotFound)
		}
		return giftcard.Card{}, err
	}
	return card, nil
}

func scanCardRow(row pgx.Row) (giftcard.Card, error) {
	var (
		cardValue     string
		codeValue     string
		originalValue int64
		currentValue  int64
		emailValue    string
		name          string
		note          string
		ownerValue    string
		variantID     string
		lineItemID    string
		expiresAt     int64
		createdAt     int64
		deletedAt     int64
	)
	err := row.Scan(
		&cardValue, &codeValue, &originalValue, &currentValue,
		&emailValue, &name, &note,
		&ownerValue, &variantID, &lineItemID,
		&expiresAt, &createdAt, &deletedAt,
	)
	if err != nil {
		return giftcard.Card{}, err
	}
	cardID, err := giftcard.NewCardID(cardValue)
	if err != nil {
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
	}
	code, err := giftcard.NewCode(codeValue)
	if err != nil {
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
	}
	email, err := giftcard.NewEmailAddress(emailValue)
	if err != nil {
		return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
	}
	card := giftcard.Card{
		CardID:             cardID,
		Code:               code,
		OriginalValueCents: giftcard.AmountCents(originalValue),
		CurrentValueCents:  giftcard.AmountCents(currentValue),
		Email:              email,
		Name:               name,
		Note:               note,
		VariantID:          variantID,
		LineItemID:         lineItemID,
		ExpiresAtUnixUTC:   expiresAt,
		CreatedUnixUTC:     createdAt,
		DeletedUnixUTC:     deletedAt,
	}
	if ownerValue != "" {
		owner, err := giftcard.NewUserID(ownerValue)
		if err != nil {
			return giftcard.Card{}, wrapStoreError(errorSubjectCard, errorCodeInvalid, err)
		}
		card.OwnerID = owner
	}
	return card, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return giftcard.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}
