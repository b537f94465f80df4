package events

import (
	"context"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

// Multi fans one event out to several emitters in order.
type Multi []usecase.Emitter

func (m Multi) Emit(ctx context.Context, ev usecase.Event) {
	for _, emitter := range m {
		emitter.Emit(ctx, ev)
	}
}

var _ usecase.Emitter = Multi(nil)
