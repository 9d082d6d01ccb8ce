// Package zaplog adapts the gift-card OperationLogger contract to zap.
package zaplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/giftcard/pkg/giftcard"
	"go.uber.org/zap"
)

// Logger emits one structured line per gift-card operation.
type Logger struct {
	base *zap.Logger
}

// New wraps a zap logger.
func New(base *zap.Logger) *Logger {
	return &Logger{base: base}
}

// LogOperation implements giftcard.OperationLogger.
func (logger *Logger) LogOperation(_ context.Context, entry giftcard.OperationLog) {
	if logger.base == nil {
		return
	}
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("card_id", entry.CardID.String()),
		zap.String("order_id", entry.OrderID.String()),
		zap.Int64("amount_cents", entry.Amount.Int64()),
		zap.String("status", entry.Status),
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		logger.base.Warn("giftcard operation failed", fields...)
		return
	}
	logger.base.Info("giftcard operation", fields...)
}
