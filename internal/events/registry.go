package events

import "sync"

// Subscriber is a live delivery target. Deliver must not block; returning an
// error marks the subscriber as gone and removes its subscription.
type Subscriber interface {
	Deliver(event Event) error
}

// SubscriptionID identifies one live subscription.
type SubscriptionID uint64

// Entry pairs a subscription id with its subscriber, so delivery failures can
// be traced back to the subscription to remove.
type Entry struct {
	ID         SubscriptionID
	Subscriber Subscriber
}

// Stats describes the live connection population.
type Stats struct {
	TotalConnections       int `json:"total_connections"`
	GlobalConnections      int `json:"global_connections"`
	AccountConnections     int `json:"account_specific_connections"`
	AccountsWithConnection int `json:"accounts_with_connections"`
}

type subscription struct {
	id        SubscriptionID
	accountID string // empty = global scope
	sub       Subscriber
}

// Registry tracks live subscribers, each optionally scoped to one account.
// It is owned by the composition root and shared by the websocket layer
// (connect/disconnect) and the broadcaster (fan-out, failure removal).
type Registry struct {
	mu        sync.RWMutex
	nextID    SubscriptionID
	subs      map[SubscriptionID]*subscription
	byAccount map[string]map[SubscriptionID]*subscription
	global    map[SubscriptionID]*subscription
}

func NewRegistry() *Registry {
	return &Registry{
		subs:      make(map[SubscriptionID]*subscription),
		byAccount: make(map[string]map[SubscriptionID]*subscription),
		global:    make(map[SubscriptionID]*subscription),
	}
}

// Add registers a subscriber. An empty accountID subscribes globally.
func (r *Registry) Add(sub Subscriber, accountID string) SubscriptionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &subscription{id: r.nextID, accountID: accountID, sub: sub}
	r.subs[s.id] = s
	if accountID == "" {
		r.global[s.id] = s
		return s.id
	}
	if r.byAccount[accountID] == nil {
		r.byAccount[accountID] = make(map[SubscriptionID]*subscription)
	}
	r.byAccount[accountID][s.id] = s
	return s.id
}

// Remove deregisters a subscription. Removing an unknown id is a no-op.
func (r *Registry) Remove(id SubscriptionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return
	}
	delete(r.subs, id)
	if s.accountID == "" {
		delete(r.global, id)
		return
	}
	delete(r.byAccount[s.accountID], id)
	if len(r.byAccount[s.accountID]) == 0 {
		delete(r.byAccount, s.accountID)
	}
}

// SubscribersFor returns the union of global subscribers and those scoped to
// accountID.
func (r *Registry) SubscribersFor(accountID string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.global)+len(r.byAccount[accountID]))
	for _, s := range r.global {
		entries = append(entries, Entry{ID: s.id, Subscriber: s.sub})
	}
	for _, s := range r.byAccount[accountID] {
		entries = append(entries, Entry{ID: s.id, Subscriber: s.sub})
	}
	return entries
}

// AllGlobal returns the globally scoped subscribers.
func (r *Registry) AllGlobal() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.global))
	for _, s := range r.global {
		entries = append(entries, Entry{ID: s.id, Subscriber: s.sub})
	}
	return entries
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scoped := 0
	for _, subs := range r.byAccount {
		scoped += len(subs)
	}
	return Stats{
		TotalConnections:       len(r.subs),
		GlobalConnections:      len(r.global),
		AccountConnections:     scoped,
		AccountsWithConnection: len(r.byAccount),
	}
}
