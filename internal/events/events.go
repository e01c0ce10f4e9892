package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/models"
)

// Event types pushed to real-time subscribers.
const (
	TypeTransactionUpdate     = "transaction_update"
	TypeBalanceUpdate         = "balance_update"
	TypeInitialData           = "initial_data"
	TypeConnectionEstablished = "connection_established"
	TypePong                  = "pong"
	TypeStats                 = "stats"
	TypeRecentTransactions    = "recent_transactions"
	TypeAccountBalance        = "account_balance"
	TypeError                 = "error"
)

// Redis stream names for the optional external mirror.
const (
	TransactionEventsStream = "transaction.events"
	AccountEventsStream     = "account.events"
)

// Event is the envelope for every message pushed to a subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// BalanceUpdatePayload is the data of a balance_update event.
type BalanceUpdatePayload struct {
	AccountID  string          `json:"account_id"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewTransactionEvent builds the transaction_update event for a committed
// ledger record.
func NewTransactionEvent(transaction *models.Transaction) Event {
	return Event{Type: TypeTransactionUpdate, Data: transaction}
}

// NewBalanceEvent builds the balance_update event for an account's new
// balance.
func NewBalanceEvent(accountID string, newBalance decimal.Decimal) Event {
	return Event{
		Type: TypeBalanceUpdate,
		Data: BalanceUpdatePayload{
			AccountID:  accountID,
			NewBalance: newBalance,
			Timestamp:  time.Now().UTC(),
		},
	}
}

// NewErrorEvent builds an error event with a human-readable message.
func NewErrorEvent(message string) Event {
	return Event{Type: TypeError, Data: ErrorPayload{Message: message}}
}
