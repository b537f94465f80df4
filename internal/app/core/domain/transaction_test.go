package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"one cent", "0.01", nil},
		{"whole amount", "100", nil},
		{"two decimals", "19.99", nil},
		{"zero", "0", ErrInvalidAmount},
		{"negative", "-5", ErrInvalidAmount},
		{"half cent", "0.005", ErrInvalidAmount},
		{"three decimals", "1.001", ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAmount(%s) = %v, want %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

func TestLockOrder(t *testing.T) {
	tests := []struct {
		a, b       string
		wantFirst  string
		wantSecond string
	}{
		{"alice", "bob", "alice", "bob"},
		{"bob", "alice", "alice", "bob"},
		{"x", "x", "x", "x"},
	}

	for _, tt := range tests {
		first, second := LockOrder(tt.a, tt.b)
		if first != tt.wantFirst || second != tt.wantSecond {
			t.Errorf("LockOrder(%s, %s) = (%s, %s), want (%s, %s)",
				tt.a, tt.b, first, second, tt.wantFirst, tt.wantSecond)
		}
	}
}

func TestErrorCode(t *testing.T) {
	if code := ErrorCode(ErrInsufficientFunds); code != "INSUFFICIENT_FUNDS" {
		t.Errorf("code = %s, want INSUFFICIENT_FUNDS", code)
	}
	if code := ErrorCode(errors.New("boom")); code != "INTERNAL" {
		t.Errorf("code = %s, want INTERNAL", code)
	}
}

func TestIsLedgerError(t *testing.T) {
	if !IsLedgerError(ErrAlreadyReversed) {
		t.Error("ErrAlreadyReversed must be a ledger error")
	}
	if IsLedgerError(errors.New("driver: bad connection")) {
		t.Error("arbitrary errors must not be ledger errors")
	}
}
