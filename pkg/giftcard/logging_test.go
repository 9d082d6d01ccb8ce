package giftcard

import (
	"context"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsDebitOperation(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "logged", 2500)
	logger := &recorderLogger{}
	service := mustNewService(test, store, testNow, WithOperationLogger(logger))
	orderID := mustOrderID(test, "order-logged")

	if err := service.Debit(context.Background(), card.CardID, -500, orderID); err != nil {
		test.Fatalf("debit: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationDebit || entry.CardID != card.CardID || entry.OrderID != orderID || entry.Amount != -500 {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "loggederr", 100)
	logger := &recorderLogger{}
	service := mustNewService(test, store, testNow, WithOperationLogger(logger))

	err := service.Debit(context.Background(), card.CardID, -500, mustOrderID(test, "order-loggederr"))
	if err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}

func TestServiceLogsApplyDiscount(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	card := seedActiveCard(test, store, "loggedapply", 2500)
	logger := &recorderLogger{}
	service := mustNewService(test, store, testNow, WithOperationLogger(logger))
	order := newStubOrder(test, "order-loggedapply", 1000)

	if err := service.Apply(context.Background(), card.CardID, order); err != nil {
		test.Fatalf("apply: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationApply || entry.Amount != -1000 || entry.OrderID != order.OrderID() {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
}
