package domain

import "errors"

var (
	// ErrInvalidAmount covers zero, negative and sub-cent amounts.
	ErrInvalidAmount = errors.New("amount must be a positive multiple of 0.01")

	// ErrSelfTransfer rejects transfers where sender and recipient match.
	ErrSelfTransfer = errors.New("sender and recipient must be different accounts")

	// ErrInvalidAccountID rejects empty account identifiers.
	ErrInvalidAccountID = errors.New("account id must not be empty")

	// ErrAccountNotFound is returned when a referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when opening an account with a taken id.
	ErrAccountExists = errors.New("account already exists")

	// ErrInsufficientFunds is returned when the sender cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrInsufficientFundsForReversal is returned when the recipient has since
	// spent the funds and can no longer be debited.
	ErrInsufficientFundsForReversal = errors.New("recipient balance too low to reverse")

	// ErrTransactionNotFound is returned when no record matches the id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyReversed is returned on a repeated reversal attempt.
	ErrAlreadyReversed = errors.New("transaction already reversed")

	// ErrStoreConflict signals a transient write conflict; the caller may retry.
	ErrStoreConflict = errors.New("store conflict")

	// ErrStoreUnavailable signals the backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ledgerErrors lists every sentinel the engine can surface, in code order.
var ledgerErrors = []error{
	ErrInvalidAmount,
	ErrSelfTransfer,
	ErrInvalidAccountID,
	ErrAccountNotFound,
	ErrAccountExists,
	ErrInsufficientFunds,
	ErrInsufficientFundsForReversal,
	ErrTransactionNotFound,
	ErrAlreadyReversed,
	ErrStoreConflict,
	ErrStoreUnavailable,
}

// IsLedgerError reports whether err wraps one of the ledger sentinels.
// Store adapters use it to pass engine errors through untranslated.
func IsLedgerError(err error) bool {
	for _, sentinel := range ledgerErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// ErrorCode maps an error to its stable wire code so upstream layers can
// translate failures without inspecting internal state.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrSelfTransfer):
		return "SELF_TRANSFER"
	case errors.Is(err, ErrInvalidAccountID):
		return "INVALID_ACCOUNT_ID"
	case errors.Is(err, ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	case errors.Is(err, ErrAccountExists):
		return "ACCOUNT_EXISTS"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInsufficientFundsForReversal):
		return "INSUFFICIENT_FUNDS_FOR_REVERSAL"
	case errors.Is(err, ErrTransactionNotFound):
		return "TRANSACTION_NOT_FOUND"
	case errors.Is(err, ErrAlreadyReversed):
		return "ALREADY_REVERSED"
	case errors.Is(err, ErrStoreConflict):
		return "STORE_CONFLICT"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
