package ledger

import "errors"

// Domain errors surfaced to callers. The HTTP layer maps them to status
// codes; the engine never retries since these are logical failures.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInactiveAccount     = errors.New("account is not active")
	ErrInvalidAccountType  = errors.New("unsupported account type")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSameAccount         = errors.New("cannot transfer to the same account")
)
