// Package ledger implements the transactional ledger engine: it is the only
// component that moves money. Every mutation validates, updates the balance
// and appends the ledger record inside one per-account critical section, then
// hands the committed facts to the event sink.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/models"
	"github.com/wrenbank/banking-api/internal/repository"
)

// EventSink receives committed facts. Implementations must not block: the
// engine calls the sink while holding account locks so that the per-account
// event order always matches the commit order. The broadcaster satisfies
// this with a non-blocking enqueue; actual delivery happens elsewhere.
type EventSink interface {
	TransactionCommitted(transaction *models.Transaction)
	BalanceChanged(accountID string, newBalance decimal.Decimal)
}

type nopSink struct{}

func (nopSink) TransactionCommitted(*models.Transaction) {}
func (nopSink) BalanceChanged(string, decimal.Decimal) {}

// Service orchestrates deposits, withdrawals and transfers over the account
// store and the transaction ledger, and owns the account lifecycle.
type Service struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	sink         EventSink
	locks        *accountLocks
}

func NewService(accounts repository.AccountRepository, transactions repository.TransactionRepository, sink EventSink) *Service {
	if sink == nil {
		sink = nopSink{}
	}
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		sink:         sink,
		locks:        newAccountLocks(),
	}
}

// ---------- account lifecycle ----------

func (s *Service) CreateAccount(cmd CreateAccountCommand) (*models.Account, error) {
	if !models.ValidAccountType(cmd.AccountType) {
		return nil, ErrInvalidAccountType
	}
	if cmd.Balance.IsNegative() {
		return nil, ErrInvalidAmount
	}
	account := &models.Account{
		ID:            uuid.NewString(),
		AccountHolder: cmd.AccountHolder,
		AccountType:   cmd.AccountType,
		Balance:       cmd.Balance,
		CreatedAt:     time.Now().UTC(),
		IsActive:      true,
	}
	s.accounts.Create(account)
	return account, nil
}

// UpdateAccount changes holder name and account type. The account may be
// inactive; only money movement is refused on inactive accounts.
func (s *Service) UpdateAccount(cmd UpdateAccountCommand) (*models.Account, error) {
	if !models.ValidAccountType(cmd.AccountType) {
		return nil, ErrInvalidAccountType
	}

	unlock := s.locks.lock(cmd.AccountID)
	defer unlock()

	account, ok := s.accounts.Get(cmd.AccountID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	account.AccountHolder = cmd.AccountHolder
	account.AccountType = cmd.AccountType
	if !s.accounts.Update(account) {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// DeactivateAccount soft-deletes an account. The account keeps its balance
// and history but rejects all further transactions.
func (s *Service) DeactivateAccount(accountID string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	if !s.accounts.Deactivate(accountID) {
		return ErrAccountNotFound
	}
	return nil
}

// ---------- money movement ----------

func (s *Service) Deposit(cmd DepositCommand) (*models.Transaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.lock(cmd.AccountID)
	defer unlock()

	account, err := s.activeAccount(cmd.AccountID)
	if err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(cmd.Amount)
	s.accounts.Update(account)

	transaction := s.record(account, cmd.Amount, models.TransactionTypeDeposit, cmd.Description, time.Now().UTC())
	s.sink.TransactionCommitted(transaction)
	s.sink.BalanceChanged(account.ID, account.Balance)
	return transaction, nil
}

func (s *Service) Withdraw(cmd WithdrawCommand) (*models.Transaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.lock(cmd.AccountID)
	defer unlock()

	account, err := s.activeAccount(cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Balance.LessThan(cmd.Amount) {
		return nil, ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(cmd.Amount)
	s.accounts.Update(account)

	transaction := s.record(account, cmd.Amount, models.TransactionTypeWithdrawal, cmd.Description, time.Now().UTC())
	s.sink.TransactionCommitted(transaction)
	s.sink.BalanceChanged(account.ID, account.Balance)
	return transaction, nil
}

// Transfer moves money between two accounts as one atomic unit: both legs are
// recorded and both balances updated, or nothing changes. Both account locks
// are held for the whole operation, acquired in ID order.
func (s *Service) Transfer(cmd TransferCommand) ([]*models.Transaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if cmd.FromAccountID == cmd.ToAccountID {
		return nil, ErrSameAccount
	}

	unlock := s.locks.lockPair(cmd.FromAccountID, cmd.ToAccountID)
	defer unlock()

	from, err := s.activeAccount(cmd.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.activeAccount(cmd.ToAccountID)
	if err != nil {
		return nil, err
	}
	if from.Balance.LessThan(cmd.Amount) {
		return nil, ErrInsufficientFunds
	}

	from.Balance = from.Balance.Sub(cmd.Amount)
	to.Balance = to.Balance.Add(cmd.Amount)
	s.accounts.Update(from)
	s.accounts.Update(to)

	// Both legs share one timestamp and reference the counterpart account in
	// their description.
	now := time.Now().UTC()
	outLeg := s.record(from, cmd.Amount, models.TransactionTypeTransfer, transferDescription("Transfer to", cmd.ToAccountID, cmd.Description), now)
	inLeg := s.record(to, cmd.Amount, models.TransactionTypeTransfer, transferDescription("Transfer from", cmd.FromAccountID, cmd.Description), now)

	s.sink.TransactionCommitted(outLeg)
	s.sink.TransactionCommitted(inLeg)
	s.sink.BalanceChanged(from.ID, from.Balance)
	s.sink.BalanceChanged(to.ID, to.Balance)
	return []*models.Transaction{outLeg, inLeg}, nil
}

// ---------- queries ----------

func (s *Service) GetAccount(accountID string) (*models.Account, error) {
	account, ok := s.accounts.Get(accountID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns active accounts only.
func (s *Service) ListAccounts() []*models.Account {
	return s.accounts.List()
}

func (s *Service) GetTransaction(transactionID string) (*models.Transaction, error) {
	transaction, ok := s.transactions.Get(transactionID)
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return transaction, nil
}

// ListTransactions returns every ledger record, newest first.
func (s *Service) ListTransactions() []*models.Transaction {
	return sortNewestFirst(s.transactions.ListAll())
}

// ListAccountTransactions returns the account's records, newest first. The
// account may be inactive; its history stays readable.
func (s *Service) ListAccountTransactions(accountID string) ([]*models.Transaction, error) {
	if _, ok := s.accounts.Get(accountID); !ok {
		return nil, ErrAccountNotFound
	}
	return sortNewestFirst(s.transactions.ListForAccount(accountID)), nil
}

// ---------- internals ----------

// activeAccount loads an account for mutation. Callers must hold the
// account's lock.
func (s *Service) activeAccount(accountID string) (*models.Account, error) {
	account, ok := s.accounts.Get(accountID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	if !account.IsActive {
		return nil, ErrInactiveAccount
	}
	return account, nil
}

// record appends a ledger entry snapshotting the account's balance at commit
// time. Callers must hold the account's lock.
func (s *Service) record(account *models.Account, amount decimal.Decimal, txType, description string, at time.Time) *models.Transaction {
	transaction := &models.Transaction{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		Amount:       amount,
		Type:         txType,
		Description:  description,
		Timestamp:    at,
		BalanceAfter: account.Balance,
	}
	s.transactions.Append(transaction)
	return transaction
}

func transferDescription(prefix, counterpartID, note string) string {
	d := prefix + " " + counterpartID
	if note != "" {
		d += ": " + note
	}
	return d
}

// sortNewestFirst orders by timestamp descending. The sort is stable so that
// records sharing a timestamp (transfer legs) keep their append order.
func sortNewestFirst(transactions []*models.Transaction) []*models.Transaction {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.After(transactions[j].Timestamp)
	})
	return transactions
}
