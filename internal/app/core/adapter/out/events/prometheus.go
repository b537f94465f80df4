package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

// PrometheusEmitter counts engine events by operation and outcome.
type PrometheusEmitter struct {
	operations *prometheus.CounterVec
}

func NewPrometheusEmitter(reg prometheus.Registerer) *PrometheusEmitter {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	reg.MustRegister(operations)
	return &PrometheusEmitter{operations: operations}
}

func (e *PrometheusEmitter) Emit(ctx context.Context, ev usecase.Event) {
	e.operations.WithLabelValues(ev.Operation, ev.Outcome).Inc()
}

var _ usecase.Emitter = (*PrometheusEmitter)(nil)
