package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types accepted by the API.
const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"
	AccountTypeCredit   = "credit"
)

// Transaction types. A transfer produces two transaction records of type
// TransactionTypeTransfer, one per leg.
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeTransfer   = "transfer"
)

// Account is the write model for a bank account. Accounts are never deleted;
// DELETE deactivates them, after which they reject new transactions but stay
// readable.
type Account struct {
	ID            string          `json:"account_id"`
	AccountHolder string          `json:"account_holder"`
	AccountType   string          `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	IsActive      bool            `json:"is_active"`
}

// Transaction is an immutable ledger record. BalanceAfter is the account
// balance captured at commit time; Amount is always positive, the
// transaction type carries the direction.
type Transaction struct {
	ID           string          `json:"transaction_id"`
	AccountID    string          `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         string          `json:"transaction_type"`
	Description  string          `json:"description,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// ValidAccountType reports whether t is one of the supported account types.
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return true
	}
	return false
}
