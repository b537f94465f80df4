package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
)

// Reader exposes the lookups available both inside and outside a unit of work.
type Reader interface {
	// GetAccount returns the account or domain.ErrAccountNotFound.
	// Inside Atomic the read also acquires the account's row lock, so calling
	// it in domain.LockOrder is what enforces the deadlock-free lock order.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// GetTransaction returns the record or domain.ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error)
	// ListTransactions returns records where the account is sender or
	// recipient, newest first.
	ListTransactions(ctx context.Context, accountID string) ([]domain.TransactionRecord, error)
}

// Tx is the mutation surface of one atomic unit of work.
type Tx interface {
	Reader
	// CreateAccount inserts a new account; domain.ErrAccountExists on duplicate id.
	CreateAccount(ctx context.Context, account *domain.Account) error
	// UpdateBalance applies a signed delta. Implementations reject any update
	// that would drive the balance negative with domain.ErrStoreConflict, as a
	// backstop below the engine's own balance check.
	UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) error
	// CreateTransaction appends a new record with a generated id and timestamp.
	CreateTransaction(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*domain.TransactionRecord, error)
	// MarkReversed flips the reversed flag; domain.ErrStoreConflict if it
	// already flipped.
	MarkReversed(ctx context.Context, id string) error
}

// Store is the repository port the engine runs against.
//
// Atomic runs fn inside one unit of work: commit if and only if fn returns
// nil, rollback on every other exit path (error or panic). Implementations
// must prevent two concurrent transfers from both observing a stale
// sufficient-balance read for the same sender, while letting transfers over
// disjoint account pairs proceed concurrently.
type Store interface {
	Reader
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
