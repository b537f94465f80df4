package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OpTransfer = "transfer"
	OpReversal = "reversal"

	OutcomeAttempted = "attempted"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Event is one structured observability record emitted by the engine.
type Event struct {
	Operation     string          `json:"operation"`
	Outcome       string          `json:"outcome"`
	TransactionID string          `json:"transaction_id,omitempty"`
	SenderID      string          `json:"sender_id,omitempty"`
	RecipientID   string          `json:"recipient_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
	At            time.Time       `json:"at"`
}

// Emitter receives engine events. The engine never writes logs directly;
// emission is best effort and must not fail the operation.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}
