package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	gosql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-tx-ledger/pkg/mysql"
)

// sqlAccount maps to the accounts table.
type sqlAccount struct {
	ID        string          `gorm:"primaryKey;size:64"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction maps to the transactions table. Rows are append-only except
// for the reversed flag.
type sqlTransaction struct {
	ID          string          `gorm:"primaryKey;size:36"`
	SenderID    string          `gorm:"size:64;index;not null"`
	RecipientID string          `gorm:"size:64;index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Reversed    bool            `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// Store is the MySQL usecase.Store. Inside Atomic, account reads take
// SELECT ... FOR UPDATE row locks; the engine orders those reads by
// domain.LockOrder, which is what keeps concurrent opposite-direction
// transfers deadlock-free.
type Store struct {
	client *mysql.Client
	queries
}

func NewStore(client *mysql.Client) *Store {
	return &Store{
		client:  client,
		queries: queries{db: client.DB()},
	}
}

// AutoMigrate creates or updates the ledger tables.
func (s *Store) AutoMigrate() error {
	return s.client.DB().AutoMigrate(&sqlAccount{}, &sqlTransaction{})
}

func (s *Store) Atomic(ctx context.Context, fn func(tx usecase.Tx) error) error {
	err := s.client.DB().WithContext(ctx).Transaction(func(g *gorm.DB) error {
		return fn(queries{db: g, locking: true})
	})
	return translate(err)
}

// queries implements the read and mutation surface over a *gorm.DB, which is
// either the base pool (plain reads) or an open transaction (locking reads).
type queries struct {
	db      *gorm.DB
	locking bool
}

func (q queries) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	db := q.db.WithContext(ctx)
	if q.locking {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row sqlAccount
	if err := db.Take(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, translate(err)
	}
	return &domain.Account{ID: row.ID, Balance: row.Balance}, nil
}

func (q queries) CreateAccount(ctx context.Context, account *domain.Account) error {
	row := sqlAccount{ID: account.ID, Balance: account.Balance}
	return translate(q.db.WithContext(ctx).Create(&row).Error)
}

func (q queries) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	// Conditional update: refuses to drive the balance negative even if a
	// caller skipped the balance check.
	res := q.db.WithContext(ctx).Exec(
		"UPDATE accounts SET balance = balance + ? WHERE id = ? AND balance + ? >= 0",
		delta, id, delta,
	)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

func (q queries) CreateTransaction(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	row := sqlTransaction{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err)
	}
	return row.toDomain(), nil
}

func (q queries) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	db := q.db.WithContext(ctx)
	if q.locking {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row sqlTransaction
	if err := db.Take(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, translate(err)
	}
	return row.toDomain(), nil
}

func (q queries) MarkReversed(ctx context.Context, id string) error {
	res := q.db.WithContext(ctx).Exec(
		"UPDATE transactions SET reversed = TRUE WHERE id = ? AND reversed = FALSE",
		id,
	)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

func (q queries) ListTransactions(ctx context.Context, accountID string) ([]domain.TransactionRecord, error) {
	var rows []sqlTransaction
	err := q.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", accountID, accountID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	records := make([]domain.TransactionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].toDomain())
	}
	return records, nil
}

func (row *sqlTransaction) toDomain() *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:          row.ID,
		SenderID:    row.SenderID,
		RecipientID: row.RecipientID,
		Amount:      row.Amount,
		Reversed:    row.Reversed,
		CreatedAt:   row.CreatedAt,
	}
}

// translate maps driver failures onto the ledger taxonomy. Engine errors pass
// through untouched so the caller sees exactly what the unit of work decided.
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
	var mysqlErr *gosql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1213, 1205: // deadlock, lock wait timeout
			return fmt.Errorf("%w: %v", domain.ErrStoreConflict, err)
		case 1062: // duplicate key
			return fmt.Errorf("%w: %v", domain.ErrAccountExists, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

var _ usecase.Store = (*Store)(nil)
var _ usecase.Tx = queries{}
