// Package events holds the Emitter implementations the engine can be wired
// with: structured logs, Kafka, Prometheus counters, or any fan-out of them.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

// LogEmitter writes every engine event as a structured log line.
type LogEmitter struct {
	logger *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(ctx context.Context, ev usecase.Event) {
	fields := []zap.Field{
		zap.String("operation", ev.Operation),
		zap.String("outcome", ev.Outcome),
		zap.String("transaction_id", ev.TransactionID),
		zap.String("sender_id", ev.SenderID),
		zap.String("recipient_id", ev.RecipientID),
		zap.String("amount", ev.Amount.String()),
	}
	if ev.Outcome == usecase.OutcomeFailed {
		fields = append(fields, zap.String("reason", ev.Reason))
		e.logger.Warn("ledger operation failed", fields...)
		return
	}
	e.logger.Info("ledger operation", fields...)
}

var _ usecase.Emitter = (*LogEmitter)(nil)
