package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-tx-ledger/pkg/wal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func seedAccount(t *testing.T, store *Store, id, balance string) {
	t.Helper()
	err := store.Atomic(context.Background(), func(tx usecase.Tx) error {
		return tx.CreateAccount(context.Background(), domain.NewAccount(id, dec(balance)))
	})
	if err != nil {
		t.Fatalf("failed to seed account %s: %v", id, err)
	}
}

func TestAtomic_CommitMakesWritesVisible(t *testing.T) {
	store := newStore(t)
	seedAccount(t, store, "a", "100")

	err := store.Atomic(context.Background(), func(tx usecase.Tx) error {
		return tx.UpdateBalance(context.Background(), "a", dec("-30"))
	})
	if err != nil {
		t.Fatalf("atomic failed: %v", err)
	}

	account, err := store.GetAccount(context.Background(), "a")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if !account.Balance.Equal(dec("70")) {
		t.Errorf("balance = %s, want 70", account.Balance)
	}
}

func TestAtomic_ErrorDiscardsStage(t *testing.T) {
	store := newStore(t)
	seedAccount(t, store, "a", "100")

	boom := errors.New("boom")
	err := store.Atomic(context.Background(), func(tx usecase.Tx) error {
		if err := tx.UpdateBalance(context.Background(), "a", dec("-30")); err != nil {
			return err
		}
		if _, err := tx.CreateTransaction(context.Background(), "a", "b", dec("30")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	account, err := store.GetAccount(context.Background(), "a")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if !account.Balance.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100 after rollback", account.Balance)
	}
	records, err := store.ListTransactions(context.Background(), "a")
	if err != nil {
		t.Fatalf("failed to list transactions: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("found %d records after rollback, want 0", len(records))
	}
}

func TestAtomic_PanicDiscardsStage(t *testing.T) {
	store := newStore(t)
	seedAccount(t, store, "a", "100")

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = store.Atomic(context.Background(), func(tx usecase.Tx) error {
			if err := tx.UpdateBalance(context.Background(), "a", dec("-30")); err != nil {
				return err
			}
			panic("mid-unit crash")
		})
	}()

	account, err := store.GetAccount(context.Background(), "a")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if !account.Balance.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100 after panic", account.Balance)
	}
}

func TestUpdateBalance_RejectsNegativeResult(t *testing.T) {
	store := newStore(t)
	seedAccount(t, store, "a", "10")

	err := store.Atomic(context.Background(), func(tx usecase.Tx) error {
		return tx.UpdateBalance(context.Background(), "a", dec("-20"))
	})
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("err = %v, want ErrStoreConflict", err)
	}
}

func TestMarkReversed_SecondFlipConflicts(t *testing.T) {
	store := newStore(t)
	seedAccount(t, store, "a", "100")
	seedAccount(t, store, "b", "0")

	var recordID string
	err := store.Atomic(context.Background(), func(tx usecase.Tx) error {
		record, err := tx.CreateTransaction(context.Background(), "a", "b", dec("100"))
		if err != nil {
			return err
		}
		recordID = record.ID
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	err = store.Atomic(context.Background(), func(tx usecase.Tx) error {
		return tx.MarkReversed(context.Background(), recordID)
	})
	if err != nil {
		t.Fatalf("first flip failed: %v", err)
	}

	err = store.Atomic(context.Background(), func(tx usecase.Tx) error {
		return tx.MarkReversed(context.Background(), recordID)
	})
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("second flip: err = %v, want ErrStoreConflict", err)
	}
}

func TestWALReplayRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := wal.NewWAL(path)
	if err != nil {
		t.Fatalf("failed to open wal: %v", err)
	}
	store, err := NewStore(w)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	seedAccount(t, store, "a", "100")
	seedAccount(t, store, "b", "0")

	var recordID string
	err = store.Atomic(context.Background(), func(tx usecase.Tx) error {
		if err := tx.UpdateBalance(context.Background(), "a", dec("-40")); err != nil {
			return err
		}
		if err := tx.UpdateBalance(context.Background(), "b", dec("40")); err != nil {
			return err
		}
		record, err := tx.CreateTransaction(context.Background(), "a", "b", dec("40"))
		if err != nil {
			return err
		}
		recordID = record.ID
		return nil
	})
	if err != nil {
		t.Fatalf("transfer unit failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close wal: %v", err)
	}

	// Reopen: a fresh store over the same log must rebuild identical state.
	w2, err := wal.NewWAL(path)
	if err != nil {
		t.Fatalf("failed to reopen wal: %v", err)
	}
	defer w2.Close()
	restored, err := NewStore(w2)
	if err != nil {
		t.Fatalf("failed to restore store: %v", err)
	}

	account, err := restored.GetAccount(context.Background(), "a")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if !account.Balance.Equal(dec("60")) {
		t.Errorf("restored balance = %s, want 60", account.Balance)
	}
	record, err := restored.GetTransaction(context.Background(), recordID)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if !record.Amount.Equal(dec("40")) || record.Reversed {
		t.Errorf("restored record = %+v", record)
	}
}
