package ledger

import "github.com/shopspring/decimal"

type CreateAccountCommand struct {
	AccountHolder string
	AccountType   string
	Balance       decimal.Decimal
}

// UpdateAccountCommand updates holder and type. Balance is immutable through
// this path; only transactions move money.
type UpdateAccountCommand struct {
	AccountID     string
	AccountHolder string
	AccountType   string
}

type DepositCommand struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
}

type WithdrawCommand struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
}

type TransferCommand struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Description   string
}
