package giftcard

import "time"

const (
	operationCreate     = "create"
	operationApply      = "apply"
	operationDebit      = "debit"
	operationSoftDelete = "soft_delete"
	operationRestore    = "restore"
	operationTransfer   = "transfer"
	operationReconcile  = "reconcile"
	operationPrice      = "price"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// AdjustmentOriginatorType tags adjustments written by this core.
	AdjustmentOriginatorType = "gift_card"

	codeByteLength        = 8
	codeMaxAttempts       = 10
	adjustmentLabel       = "Gift card"
	defaultCalculatorType = "flat_rate"

	// DefaultExpirationWindow is added to the creation time when no
	// expiration date is supplied.
	DefaultExpirationWindow = 365 * 24 * time.Hour
)
