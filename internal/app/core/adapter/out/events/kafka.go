package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

// KafkaEmitter publishes engine events as JSON messages. Publishing is best
// effort: a broker failure is logged, never surfaced to the ledger operation
// that produced the event.
type KafkaEmitter struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaEmitter(brokers []string, topic string, logger *zap.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

func (e *KafkaEmitter) Emit(ctx context.Context, ev usecase.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.Warn("failed to encode ledger event", zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.TransactionID),
		Value: data,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.logger.Warn("failed to publish ledger event",
			zap.String("operation", ev.Operation),
			zap.String("outcome", ev.Outcome),
			zap.Error(err),
		)
	}
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

var _ usecase.Emitter = (*KafkaEmitter)(nil)
