package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

type captureEmitter struct {
	events []usecase.Event
}

func (c *captureEmitter) Emit(_ context.Context, ev usecase.Event) {
	c.events = append(c.events, ev)
}

func TestMultiFansOut(t *testing.T) {
	first := &captureEmitter{}
	second := &captureEmitter{}
	multi := Multi{first, second}

	ev := usecase.Event{
		Operation: usecase.OpTransfer,
		Outcome:   usecase.OutcomeSucceeded,
		Amount:    decimal.RequireFromString("25"),
	}
	multi.Emit(context.Background(), ev)

	for i, capture := range []*captureEmitter{first, second} {
		if len(capture.events) != 1 {
			t.Fatalf("emitter %d received %d events, want 1", i, len(capture.events))
		}
		got := capture.events[0]
		if got.Operation != ev.Operation || got.Outcome != ev.Outcome {
			t.Errorf("emitter %d received %+v", i, got)
		}
	}
}

func TestPrometheusEmitterCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	emitter := NewPrometheusEmitter(reg)

	ctx := context.Background()
	emitter.Emit(ctx, usecase.Event{Operation: usecase.OpTransfer, Outcome: usecase.OutcomeSucceeded})
	emitter.Emit(ctx, usecase.Event{Operation: usecase.OpTransfer, Outcome: usecase.OutcomeSucceeded})
	emitter.Emit(ctx, usecase.Event{Operation: usecase.OpReversal, Outcome: usecase.OutcomeFailed})

	succeeded := testutil.ToFloat64(emitter.operations.WithLabelValues(usecase.OpTransfer, usecase.OutcomeSucceeded))
	if succeeded != 2 {
		t.Errorf("transfer succeeded count = %v, want 2", succeeded)
	}
	failed := testutil.ToFloat64(emitter.operations.WithLabelValues(usecase.OpReversal, usecase.OutcomeFailed))
	if failed != 1 {
		t.Errorf("reversal failed count = %v, want 1", failed)
	}
}
