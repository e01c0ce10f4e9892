package repository

import (
	"sync"

	"github.com/wrenbank/banking-api/internal/models"
)

// AccountRepository is the storage contract for accounts. The in-memory
// implementation below is the only one today; a persistent implementation can
// satisfy the same interface without touching the ledger engine.
type AccountRepository interface {
	Create(account *models.Account)
	Get(id string) (*models.Account, bool)
	List() []*models.Account
	Update(account *models.Account) bool
	Deactivate(id string) bool
	ExistsActive(id string) bool
}

// InMemoryAccountRepository keeps accounts in a map guarded by a RWMutex.
// It stores and hands out copies, so callers can never mutate repository
// state except through Update.
type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *InMemoryAccountRepository) Create(account *models.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.ID] = &cp
}

func (r *InMemoryAccountRepository) Get(id string) (*models.Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, false
	}
	cp := *account
	return &cp, true
}

// List returns the active accounts only. No ordering is guaranteed.
func (r *InMemoryAccountRepository) List() []*models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		if !account.IsActive {
			continue
		}
		cp := *account
		out = append(out, &cp)
	}
	return out
}

// Update replaces the stored account. Returns false if the id is unknown.
func (r *InMemoryAccountRepository) Update(account *models.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return false
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return true
}

// Deactivate soft-deletes an account. Returns false if the id is unknown;
// deactivating an already inactive account succeeds.
func (r *InMemoryAccountRepository) Deactivate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return false
	}
	account.IsActive = false
	return true
}

// ExistsActive reports whether id names an account that accepts transactions.
func (r *InMemoryAccountRepository) ExistsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	return ok && account.IsActive
}
