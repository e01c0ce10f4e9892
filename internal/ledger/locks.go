package ledger

import "sync"

// accountLocks serializes operations per account. Locks are created on first
// use and kept for the life of the process; accounts are never deleted, so the
// table grows only with the set of ids ever locked.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *accountLocks) get(accountID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	return m
}

// lock acquires the mutex for one account and returns its unlock func.
func (l *accountLocks) lock(accountID string) func() {
	m := l.get(accountID)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both account mutexes in lexicographic ID order so that
// two opposite-direction transfers can never deadlock. The IDs must differ.
func (l *accountLocks) lockPair(a, b string) func() {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	m1 := l.get(first)
	m2 := l.get(second)
	m1.Lock()
	m2.Lock()
	return func() {
		m2.Unlock()
		m1.Unlock()
	}
}
