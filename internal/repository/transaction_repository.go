package repository

import (
	"sync"

	"github.com/wrenbank/banking-api/internal/models"
)

// TransactionRepository is the storage contract for the append-only ledger.
// Records are never updated or removed once appended. Callers own sort order.
type TransactionRepository interface {
	Append(transaction *models.Transaction)
	Get(id string) (*models.Transaction, bool)
	ListAll() []*models.Transaction
	ListForAccount(accountID string) []*models.Transaction
}

// InMemoryTransactionRepository keeps the ledger in insertion order plus an
// id index. Same copy discipline as the account repository.
type InMemoryTransactionRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.Transaction
	order []*models.Transaction
}

func NewInMemoryTransactionRepository() *InMemoryTransactionRepository {
	return &InMemoryTransactionRepository{byID: make(map[string]*models.Transaction)}
}

func (r *InMemoryTransactionRepository) Append(transaction *models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *transaction
	r.byID[cp.ID] = &cp
	r.order = append(r.order, &cp)
}

func (r *InMemoryTransactionRepository) Get(id string) (*models.Transaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	transaction, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	cp := *transaction
	return &cp, true
}

// ListAll returns every ledger record in append order.
func (r *InMemoryTransactionRepository) ListAll() []*models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Transaction, 0, len(r.order))
	for _, transaction := range r.order {
		cp := *transaction
		out = append(out, &cp)
	}
	return out
}

// ListForAccount returns the records owned by accountID in append order.
func (r *InMemoryTransactionRepository) ListForAccount(accountID string) []*models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Transaction
	for _, transaction := range r.order {
		if transaction.AccountID != accountID {
			continue
		}
		cp := *transaction
		out = append(out, &cp)
	}
	return out
}
