package giftcard

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestDebitSettlesBalanceAndAppendsTransaction(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "settle", 2500)
	service := mustNewService(test, store, testNow)
	orderID := mustOrderID(test, "order-settle")

	if err := service.Debit(context.Background(), card.CardID, -2500, orderID); err != nil {
		test.Fatalf("debit: %v", err)
	}
	stored := store.cards[card.CardID.String()]
	if stored.CurrentValueCents != 0 {
		test.Fatalf("expected balance 0, got %d", stored.CurrentValueCents)
	}
	if len(store.transactions) != 1 {
		test.Fatalf("expected exactly one transaction, got %d", len(store.transactions))
	}
	transaction := store.transactions[0]
	if transaction.AmountCents != -2500 {
		test.Fatalf("expected transaction amount -2500, got %d", transaction.AmountCents)
	}
	if transaction.OrderID != orderID {
		test.Fatalf("expected transaction to reference the order")
	}
	if transaction.CardID != card.CardID {
		test.Fatalf("expected transaction to reference the card")
	}
}

func TestDebitExceedingBalanceFailsWithoutMutation(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "over", 2500)
	service := mustNewService(test, store, testNow)

	err := service.Debit(context.Background(), card.CardID, -3000, mustOrderID(test, "order-over"))
	if !errors.Is(err, ErrAmountOutOfRange) {
		test.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}
	if store.cards[card.CardID.String()].CurrentValueCents != 2500 {
		test.Fatalf("expected balance unchanged after failed debit")
	}
	if len(store.transactions) != 0 {
		test.Fatalf("expected no ledger entry after failed debit")
	}
}

func TestDebitPositiveAmountIsRejected(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "sign", 2500)
	service := mustNewService(test, store, testNow)

	err := service.Debit(context.Background(), card.CardID, 100, mustOrderID(test, "order-sign"))
	if !errors.Is(err, ErrAmountOutOfRange) {
		test.Fatalf("expected ErrAmountOutOfRange for positive amount, got %v", err)
	}
}

func TestDebitMinInt64AmountIsRejectedWithoutMutation(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "wrap", 2500)
	service := mustNewService(test, store, testNow)

	err := service.Debit(context.Background(), card.CardID, math.MinInt64, mustOrderID(test, "order-wrap"))
	if !errors.Is(err, ErrAmountOutOfRange) {
		test.Fatalf("expected ErrAmountOutOfRange for math.MinInt64, got %v", err)
	}
	if got := store.cards[card.CardID.String()].CurrentValueCents; got != 2500 {
		test.Fatalf("expected balance unchanged, got %d", got)
	}
	if len(store.transactions) != 0 {
		test.Fatalf("expected no ledger entry after rejected debit")
	}
}

func TestDebitPartialLeavesRemainder(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "partial", 2500)
	service := mustNewService(test, store, testNow)

	if err := service.Debit(context.Background(), card.CardID, -1000, mustOrderID(test, "order-partial")); err != nil {
		test.Fatalf("debit: %v", err)
	}
	if got := store.cards[card.CardID.String()].CurrentValueCents; got != 1500 {
		test.Fatalf("expected remainder 1500, got %d", got)
	}
}

func TestDebitSoftDeletedCardIsNotFound(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "gone", 2500)
	stored := store.cards[card.CardID.String()]
	stored.DeletedUnixUTC = testNow
	store.cards[card.CardID.String()] = stored
	service := mustNewService(test, store, testNow)

	err := service.Debit(context.Background(), card.CardID, -100, mustOrderID(test, "order-gone"))
	if !errors.Is(err, ErrCardNotFound) {
		test.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestLedgerReconcilesAfterDebits(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "reconcile", 5000)
	service := mustNewService(test, store, testNow)

	for _, amount := range []int64{-1000, -1500, -500} {
		if err := service.Debit(context.Background(), card.CardID, amount, mustOrderID(test, "order-reconcile")); err != nil {
			test.Fatalf("debit %d: %v", amount, err)
		}
	}
	if err := service.Reconcile(context.Background(), card.CardID); err != nil {
		test.Fatalf("reconcile: %v", err)
	}
	if got := store.cards[card.CardID.String()].CurrentValueCents; got != 2000 {
		test.Fatalf("expected balance 2000, got %d", got)
	}
}

func TestReconcileDetectsDrift(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "drift", 5000)
	service := mustNewService(test, store, testNow)

	// A transaction written without the matching balance change.
	store.transactions = append(store.transactions, Transaction{
		TransactionID: "rogue",
		CardID:        card.CardID,
		OrderID:       mustOrderID(test, "order-drift"),
		AmountCents:   -700,
	})
	err := service.Reconcile(context.Background(), card.CardID)
	if !errors.Is(err, ErrLedgerDrift) {
		test.Fatalf("expected ErrLedgerDrift, got %v", err)
	}
}

func TestDebitBalanceInvariantHolds(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "invariant", 2500)
	service := mustNewService(test, store, testNow)

	amounts := []int64{-500, -2000, -1}
	for _, amount := range amounts {
		_ = service.Debit(context.Background(), card.CardID, amount, mustOrderID(test, "order-invariant"))
		stored := store.cards[card.CardID.String()]
		if stored.CurrentValueCents < 0 || stored.CurrentValueCents > stored.OriginalValueCents {
			test.Fatalf("balance invariant violated: current=%d original=%d", stored.CurrentValueCents, stored.OriginalValueCents)
		}
	}
	if got := store.cards[card.CardID.String()].CurrentValueCents; got != 0 {
		test.Fatalf("expected balance 0 after exact consumption, got %d", got)
	}
}
