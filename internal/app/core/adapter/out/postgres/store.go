package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id VARCHAR(64) PRIMARY KEY,
	balance DECIMAL(20,2) NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	sender_id VARCHAR(64) NOT NULL REFERENCES accounts(id),
	recipient_id VARCHAR(64) NOT NULL REFERENCES accounts(id),
	amount DECIMAL(20,2) NOT NULL,
	reversed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions (sender_id);
CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions (recipient_id);
`

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// Store is the Postgres usecase.Store over database/sql. Atomic maps onto an
// explicit BeginTx with a deferred rollback; account reads inside the unit
// take FOR UPDATE row locks in the order the engine requests them.
type Store struct {
	db *sql.DB
	queries
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		queries: queries{q: db},
	}
}

// Init creates the ledger tables.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return translate(err)
}

func (s *Store) Atomic(ctx context.Context, fn func(tx usecase.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err)
	}
	defer dbTx.Rollback() // no-op after commit

	if err := fn(queries{q: dbTx, forUpdate: true}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return translate(err)
	}
	return nil
}

// runner is satisfied by *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q         runner
	forUpdate bool
}

func (p queries) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT id, balance FROM accounts WHERE id = $1`
	if p.forUpdate {
		query += ` FOR UPDATE`
	}
	var account domain.Account
	err := p.q.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (p queries) CreateAccount(ctx context.Context, account *domain.Account) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO accounts (id, balance) VALUES ($1, $2)`,
		account.ID, account.Balance,
	)
	return translate(err)
}

func (p queries) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2 AND balance + $1 >= 0`,
		delta, id,
	)
	if err != nil {
		return translate(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if rows == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

func (p queries) CreateTransaction(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	record := &domain.TransactionRecord{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO transactions (id, sender_id, recipient_id, amount, reversed, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		record.ID, record.SenderID, record.RecipientID, record.Amount, record.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return record, nil
}

func (p queries) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	query := `SELECT id, sender_id, recipient_id, amount, reversed, created_at FROM transactions WHERE id = $1`
	if p.forUpdate {
		query += ` FOR UPDATE`
	}
	var record domain.TransactionRecord
	err := p.q.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.SenderID, &record.RecipientID,
		&record.Amount, &record.Reversed, &record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (p queries) MarkReversed(ctx context.Context, id string) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE transactions SET reversed = TRUE WHERE id = $1 AND reversed = FALSE`,
		id,
	)
	if err != nil {
		return translate(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if rows == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

func (p queries) ListTransactions(ctx context.Context, accountID string) ([]domain.TransactionRecord, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, sender_id, recipient_id, amount, reversed, created_at
		 FROM transactions
		 WHERE sender_id = $1 OR recipient_id = $1
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		var record domain.TransactionRecord
		if err := rows.Scan(
			&record.ID, &record.SenderID, &record.RecipientID,
			&record.Amount, &record.Reversed, &record.CreatedAt,
		); err != nil {
			return nil, translate(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return records, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsLedgerError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization failure, deadlock detected
			return fmt.Errorf("%w: %v", domain.ErrStoreConflict, err)
		case "23505": // unique violation
			return fmt.Errorf("%w: %v", domain.ErrAccountExists, err)
		case "23514": // check violation (balance >= 0)
			return fmt.Errorf("%w: %v", domain.ErrStoreConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

var _ usecase.Store = (*Store)(nil)
var _ usecase.Tx = queries{}
