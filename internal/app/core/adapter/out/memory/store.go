package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-tx-ledger/pkg/wal"
)

// Store is an in-memory usecase.Store. A single writer lock serializes units
// of work; mutations are staged per unit and applied only on commit, so an
// aborted unit leaves no trace. Committed mutations go to the WAL (when one
// is configured) before they become visible, and are replayed on startup.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions map[string]*domain.TransactionRecord
	wal          *wal.WAL
}

// walRecord is one committed unit of work: post-commit snapshots of every
// account and transaction the unit touched.
type walRecord struct {
	Accounts     []domain.Account           `json:"accounts,omitempty"`
	Transactions []domain.TransactionRecord `json:"transactions,omitempty"`
}

// NewStore builds a Store, replaying w first when it is non-nil. A nil WAL
// gives a volatile store, which is what tests want.
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.TransactionRecord),
		wal:          w,
	}
	if w != nil {
		if err := s.recover(); err != nil {
			return nil, fmt.Errorf("wal replay: %w", err)
		}
	}
	return s, nil
}

func (s *Store) recover() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return err
		}
		for i := range rec.Accounts {
			account := rec.Accounts[i]
			s.accounts[account.ID] = &account
		}
		for i := range rec.Transactions {
			record := rec.Transactions[i]
			s.transactions[record.ID] = &record
		}
		return nil
	})
}

// Atomic runs fn under the writer lock against a staged view. The stage is
// applied only when fn returns nil; any error or panic discards it.
func (s *Store) Atomic(ctx context.Context, fn func(tx usecase.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:        s,
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.TransactionRecord),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectTransactions(s.transactions, nil, accountID), nil
}

// memTx stages reads and writes for one unit of work. Reading an entity pulls
// a private copy into the stage; commit writes the whole stage back.
type memTx struct {
	store        *Store
	accounts     map[string]*domain.Account
	transactions map[string]*domain.TransactionRecord
}

func (t *memTx) account(id string) (*domain.Account, bool) {
	if account, ok := t.accounts[id]; ok {
		return account, true
	}
	account, ok := t.store.accounts[id]
	if !ok {
		return nil, false
	}
	cp := *account
	t.accounts[id] = &cp
	return &cp, true
}

func (t *memTx) transaction(id string) (*domain.TransactionRecord, bool) {
	if record, ok := t.transactions[id]; ok {
		return record, true
	}
	record, ok := t.store.transactions[id]
	if !ok {
		return nil, false
	}
	cp := *record
	t.transactions[id] = &cp
	return &cp, true
}

func (t *memTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := t.account(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (t *memTx) CreateAccount(ctx context.Context, account *domain.Account) error {
	if _, ok := t.account(account.ID); ok {
		return domain.ErrAccountExists
	}
	cp := *account
	t.accounts[account.ID] = &cp
	return nil
}

func (t *memTx) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	account, ok := t.account(id)
	if !ok {
		return domain.ErrAccountNotFound
	}
	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return domain.ErrStoreConflict
	}
	account.Balance = next
	return nil
}

func (t *memTx) CreateTransaction(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	record := &domain.TransactionRecord{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}
	t.transactions[record.ID] = record
	cp := *record
	return &cp, nil
}

func (t *memTx) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	record, ok := t.transaction(id)
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *record
	return &cp, nil
}

func (t *memTx) MarkReversed(ctx context.Context, id string) error {
	record, ok := t.transaction(id)
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if record.Reversed {
		return domain.ErrStoreConflict
	}
	record.Reversed = true
	return nil
}

func (t *memTx) ListTransactions(ctx context.Context, accountID string) ([]domain.TransactionRecord, error) {
	return collectTransactions(t.store.transactions, t.transactions, accountID), nil
}

func (t *memTx) commit() error {
	if t.store.wal != nil {
		var rec walRecord
		for _, account := range t.accounts {
			rec.Accounts = append(rec.Accounts, *account)
		}
		for _, record := range t.transactions {
			rec.Transactions = append(rec.Transactions, *record)
		}
		if err := t.store.wal.Write(rec); err != nil {
			return fmt.Errorf("%w: wal write: %v", domain.ErrStoreUnavailable, err)
		}
	}
	for id, account := range t.accounts {
		t.store.accounts[id] = account
	}
	for id, record := range t.transactions {
		t.store.transactions[id] = record
	}
	return nil
}

// collectTransactions merges committed records with staged overrides and
// returns the account's records newest first.
func collectTransactions(base, staged map[string]*domain.TransactionRecord, accountID string) []domain.TransactionRecord {
	result := make([]domain.TransactionRecord, 0)
	seen := make(map[string]bool, len(staged))
	for id, record := range staged {
		seen[id] = true
		if record.SenderID == accountID || record.RecipientID == accountID {
			result = append(result, *record)
		}
	}
	for id, record := range base {
		if seen[id] {
			continue
		}
		if record.SenderID == accountID || record.RecipientID == accountID {
			result = append(result, *record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

var _ usecase.Store = (*Store)(nil)
var _ usecase.Tx = (*memTx)(nil)
