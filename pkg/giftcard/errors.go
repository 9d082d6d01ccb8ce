package giftcard

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the gift-card service.
var (
	ErrCardNotFound         = errors.New("gift card not found")
	ErrExpiredCard          = errors.New("gift card expired")
	ErrInvalidUser          = errors.New("gift card belongs to a different user")
	ErrAmountOutOfRange     = errors.New("debit amount out of range")
	ErrOrderNotModifiable   = errors.New("order is not in a modifiable state")
	ErrCodeCollision        = errors.New("redemption code collision")
	ErrBalanceConflict      = errors.New("concurrent balance update")
	ErrLedgerDrift          = errors.New("ledger does not reconcile with balance")
	ErrInvalidCardID        = errors.New("invalid card id")
	ErrInvalidOrderID       = errors.New("invalid order id")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidCode          = errors.New("invalid redemption code")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidAmountCents   = errors.New("invalid amount cents")
	ErrInvalidValues        = errors.New("invalid card values")
	ErrInvalidCalculator    = errors.New("invalid calculator")
	ErrInvalidListQuery     = errors.New("invalid list query")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
