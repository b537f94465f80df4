package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// minUnit is the smallest amount the ledger accepts (one cent).
var minUnit = decimal.New(1, -2)

// TransactionRecord is the immutable record of one completed transfer.
// Only the Reversed flag may change after creation, and it flips at most once.
type TransactionRecord struct {
	ID          string          `json:"id"`
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reversed    bool            `json:"reversed"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ValidateAmount checks the transfer amount: positive and an exact multiple
// of 0.01. The engine re-checks even when callers validated, because it is
// the consistency boundary.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Cmp(decimal.Zero) <= 0 {
		return ErrInvalidAmount
	}
	if !amount.Mod(minUnit).IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

// LockOrder returns the two account ids in the global locking order
// (ascending id). Every multi-account mutation must acquire its row locks in
// this order, never in caller-supplied (sender, recipient) order, so two
// opposite-direction transfers over the same pair cannot deadlock.
func LockOrder(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
