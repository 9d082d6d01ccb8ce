package httpserver

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/giftcard/pkg/giftcard"
)

const (
	errorCardNotFound       = "card_not_found"
	errorExpiredGiftCard    = "expired_gift_card"
	errorInvalidUser        = "invalid_user"
	errorAmountOutOfRange   = "amount_out_of_range"
	errorOrderNotModifiable = "order_not_modifiable"
	errorBalanceConflict    = "balance_conflict"
	errorCodeCollision      = "code_collision"
	errorLedgerDrift        = "ledger_drift"
	errorValidation         = "validation_failed"
	errorInternal           = "internal"
)

// mapDomainError translates domain sentinels to HTTP status and a
// stable error code.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, giftcard.ErrCardNotFound):
		return http.StatusNotFound, errorCardNotFound
	case errors.Is(err, giftcard.ErrExpiredCard):
		return http.StatusUnprocessableEntity, errorExpiredGiftCard
	case errors.Is(err, giftcard.ErrInvalidUser):
		return http.StatusForbidden, errorInvalidUser
	case errors.Is(err, giftcard.ErrAmountOutOfRange):
		return http.StatusUnprocessableEntity, errorAmountOutOfRange
	case errors.Is(err, giftcard.ErrOrderNotModifiable):
		return http.StatusConflict, errorOrderNotModifiable
	case errors.Is(err, giftcard.ErrBalanceConflict):
		return http.StatusConflict, errorBalanceConflict
	case errors.Is(err, giftcard.ErrCodeCollision):
		return http.StatusConflict, errorCodeCollision
	case errors.Is(err, giftcard.ErrLedgerDrift):
		return http.StatusConflict, errorLedgerDrift
	case errors.Is(err, giftcard.ErrInvalidEmail),
		errors.Is(err, giftcard.ErrInvalidName),
		errors.Is(err, giftcard.ErrInvalidValues),
		errors.Is(err, giftcard.ErrInvalidAmountCents),
		errors.Is(err, giftcard.ErrInvalidCardID),
		errors.Is(err, giftcard.ErrInvalidOrderID),
		errors.Is(err, giftcard.ErrInvalidUserID),
		errors.Is(err, giftcard.ErrInvalidCode),
		errors.Is(err, giftcard.ErrInvalidListQuery):
		return http.StatusBadRequest, errorValidation
	default:
		return http.StatusInternalServerError, errorInternal
	}
}
