package domain

import "github.com/shopspring/decimal"

// Account holds a non-negative balance. Balances are decimals with a fixed
// granularity of 0.01; binary floating point never touches a money path.
type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

func NewAccount(id string, balance decimal.Decimal) *Account {
	return &Account{
		ID:      id,
		Balance: balance,
	}
}
