package events

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/models"
)

// queueSize bounds the dispatch backlog. Commits enqueue without blocking;
// when the queue is full the event is dropped and logged, never the commit.
const queueSize = 256

type dispatchItem struct {
	accountID string
	stream    string
	event     Event
}

// Broadcaster fans committed ledger facts out to live subscribers. The
// engine enqueues from inside its critical sections (ordering per account is
// the commit order); a single dispatch goroutine performs the actual
// delivery, so slow subscribers never delay a commit.
//
// When a Publisher is configured, every event is also mirrored onto a Redis
// stream for out-of-process consumers. Mirror failures are logged and
// otherwise ignored.
type Broadcaster struct {
	registry  *Registry
	publisher *Publisher // may be nil
	queue     chan dispatchItem
}

func NewBroadcaster(registry *Registry, publisher *Publisher) *Broadcaster {
	return &Broadcaster{
		registry:  registry,
		publisher: publisher,
		queue:     make(chan dispatchItem, queueSize),
	}
}

// Run consumes the dispatch queue until ctx is cancelled. It is the single
// delivery goroutine; running it once preserves event ordering.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-b.queue:
			b.dispatch(ctx, item)
		}
	}
}

// TransactionCommitted implements ledger.EventSink.
func (b *Broadcaster) TransactionCommitted(transaction *models.Transaction) {
	b.enqueue(dispatchItem{
		accountID: transaction.AccountID,
		stream:    TransactionEventsStream,
		event:     NewTransactionEvent(transaction),
	})
}

// BalanceChanged implements ledger.EventSink.
func (b *Broadcaster) BalanceChanged(accountID string, newBalance decimal.Decimal) {
	b.enqueue(dispatchItem{
		accountID: accountID,
		stream:    AccountEventsStream,
		event:     NewBalanceEvent(accountID, newBalance),
	})
}

func (b *Broadcaster) enqueue(item dispatchItem) {
	select {
	case b.queue <- item:
	default:
		log.Printf("Event queue full, dropping %s for account %s", item.event.Type, item.accountID)
	}
}

// dispatch delivers one event to every matching subscriber, removing the
// subscriptions whose delivery fails, then mirrors it to Redis if configured.
func (b *Broadcaster) dispatch(ctx context.Context, item dispatchItem) {
	for _, entry := range b.registry.SubscribersFor(item.accountID) {
		if err := entry.Subscriber.Deliver(item.event); err != nil {
			log.Printf("Removing subscription %d after failed delivery: %v", entry.ID, err)
			b.registry.Remove(entry.ID)
		}
	}
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(ctx, item.stream, item.event.Type, item.event.Data); err != nil {
		log.Printf("Failed to mirror %s to stream %s: %v", item.event.Type, item.stream, err)
	}
}
