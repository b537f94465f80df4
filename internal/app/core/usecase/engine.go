package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
)

// Engine validates and executes transfers and reversals, each as a single
// atomic unit of work against the Store. It performs no retries of its own:
// transient store failures surface unchanged so retry policy stays with the
// caller.
type Engine struct {
	store   Store
	emitter Emitter
}

func NewEngine(store Store, emitter Emitter) *Engine {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Engine{
		store:   store,
		emitter: emitter,
	}
}

// Transfer moves amount from sender to recipient and appends a transaction
// record, all inside one unit of work. Precondition reads happen inside that
// unit, not before it, so a stale balance can never authorize a transfer.
func (e *Engine) Transfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	ev := Event{
		Operation:   OpTransfer,
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
	}
	e.emit(ctx, ev, OutcomeAttempted, nil)

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, e.fail(ctx, ev, err)
	}
	if senderID == recipientID {
		return nil, e.fail(ctx, ev, domain.ErrSelfTransfer)
	}

	var record *domain.TransactionRecord
	err := e.store.Atomic(ctx, func(tx Tx) error {
		accounts := make(map[string]*domain.Account, 2)
		first, second := domain.LockOrder(senderID, recipientID)
		for _, id := range []string{first, second} {
			account, err := tx.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			accounts[id] = account
		}

		if accounts[senderID].Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		if err := tx.UpdateBalance(ctx, senderID, amount.Neg()); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, recipientID, amount); err != nil {
			return err
		}

		var err error
		record, err = tx.CreateTransaction(ctx, senderID, recipientID, amount)
		return err
	})
	if err != nil {
		return nil, e.fail(ctx, ev, err)
	}

	ev.TransactionID = record.ID
	e.emit(ctx, ev, OutcomeSucceeded, nil)
	return record, nil
}

// Reverse inverts the balance effect of a not-yet-reversed transfer, exactly
// once. Repeat attempts fail with domain.ErrAlreadyReversed; reversal is
// deliberately not idempotent.
//
// Reverse refuses to debit a recipient who no longer holds the amount
// (ErrInsufficientFundsForReversal); balances stay non-negative at every
// commit point.
func (e *Engine) Reverse(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	ev := Event{
		Operation:     OpReversal,
		TransactionID: transactionID,
	}
	e.emit(ctx, ev, OutcomeAttempted, nil)

	var record *domain.TransactionRecord
	err := e.store.Atomic(ctx, func(tx Tx) error {
		var err error
		record, err = tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if record.Reversed {
			return domain.ErrAlreadyReversed
		}

		accounts := make(map[string]*domain.Account, 2)
		first, second := domain.LockOrder(record.SenderID, record.RecipientID)
		for _, id := range []string{first, second} {
			account, err := tx.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			accounts[id] = account
		}

		if accounts[record.RecipientID].Balance.LessThan(record.Amount) {
			return domain.ErrInsufficientFundsForReversal
		}

		if err := tx.UpdateBalance(ctx, record.SenderID, record.Amount); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, record.RecipientID, record.Amount.Neg()); err != nil {
			return err
		}
		if err := tx.MarkReversed(ctx, transactionID); err != nil {
			return err
		}
		record.Reversed = true
		return nil
	})
	if err != nil {
		return nil, e.fail(ctx, ev, err)
	}

	ev.SenderID = record.SenderID
	ev.RecipientID = record.RecipientID
	ev.Amount = record.Amount
	e.emit(ctx, ev, OutcomeSucceeded, nil)
	return record, nil
}

// CreateAccount opens an account with an initial balance.
func (e *Engine) CreateAccount(ctx context.Context, id string, balance decimal.Decimal) (*domain.Account, error) {
	if id == "" {
		return nil, domain.ErrInvalidAccountID
	}
	if balance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	account := domain.NewAccount(id, balance)
	err := e.store.Atomic(ctx, func(tx Tx) error {
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetBalance returns the account's current balance.
func (e *Engine) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// GetTransaction looks up a single transaction record.
func (e *Engine) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	return e.store.GetTransaction(ctx, id)
}

// ListTransactions returns the account's records, newest first.
func (e *Engine) ListTransactions(ctx context.Context, accountID string) ([]domain.TransactionRecord, error) {
	return e.store.ListTransactions(ctx, accountID)
}

func (e *Engine) emit(ctx context.Context, ev Event, outcome string, err error) {
	ev.Outcome = outcome
	ev.At = time.Now().UTC()
	if err != nil {
		ev.Reason = err.Error()
	}
	e.emitter.Emit(ctx, ev)
}

func (e *Engine) fail(ctx context.Context, ev Event, err error) error {
	e.emit(ctx, ev, OutcomeFailed, err)
	return err
}
