package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wrenbank/banking-api/internal/events"
	"github.com/wrenbank/banking-api/internal/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	// Per-client outbound buffer. A client that falls this far behind is
	// treated as gone.
	sendBufferSize = 32
)

var errSubscriberGone = errors.New("subscriber buffer full or connection closed")

// defaultRecentLimit caps get_recent_transactions when the client sends no limit.
const defaultRecentLimit = 10

// clientMessage is what subscribers may send over the channel.
type clientMessage struct {
	Type  string `json:"type"`
	Limit int    `json:"limit"`
}

// Client is one live websocket subscriber. It implements events.Subscriber:
// Deliver enqueues onto the send buffer without blocking, and the write pump
// drains it onto the socket.
type Client struct {
	conn      *websocket.Conn
	ledger    Ledger
	registry  *events.Registry
	accountID string // empty = global scope
	id        events.SubscriptionID

	send      chan events.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, ledger Ledger, registry *events.Registry, accountID string) *Client {
	return &Client{
		conn:      conn,
		ledger:    ledger,
		registry:  registry,
		accountID: accountID,
		send:      make(chan events.Event, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// Deliver implements events.Subscriber. It never blocks: a full buffer or a
// closed connection reports the subscriber as gone so the broadcaster can
// deregister it.
func (c *Client) Deliver(event events.Event) error {
	select {
	case <-c.done:
		return errSubscriberGone
	case c.send <- event:
		return nil
	default:
		return errSubscriberGone
	}
}

// close tears the connection down once. Safe to call from any goroutine.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send buffer onto the socket and keeps the connection
// alive with pings. One writer goroutine per connection; gorilla allows at
// most one concurrent writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes client messages until the connection drops, then
// deregisters the subscription. Runs on the connection's handler goroutine.
func (c *Client) readPump() {
	defer func() {
		c.registry.Remove(c.id)
		c.close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}
		c.handleMessage(raw)
	}
}

// handleMessage answers one client message. Unknown types and bad JSON get a
// structured error event rather than a closed connection.
func (c *Client) handleMessage(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.Deliver(events.NewErrorEvent("Invalid JSON format"))
		return
	}

	switch msg.Type {
	case "ping":
		c.Deliver(events.Event{Type: events.TypePong, Data: pongPayload{Timestamp: time.Now().UTC()}})

	case "get_stats":
		c.Deliver(events.Event{Type: events.TypeStats, Data: c.registry.Stats()})

	case "get_recent_transactions":
		limit := msg.Limit
		if limit <= 0 {
			limit = defaultRecentLimit
		}
		transactions, err := c.scopedTransactions()
		if err != nil {
			c.Deliver(events.NewErrorEvent("Error processing message"))
			return
		}
		if len(transactions) > limit {
			transactions = transactions[:limit]
		}
		c.Deliver(events.Event{Type: events.TypeRecentTransactions, Data: transactions})

	case "get_account_balance":
		if c.accountID == "" {
			c.Deliver(events.NewErrorEvent("Account balance can only be requested for account-specific connections"))
			return
		}
		account, err := c.ledger.GetAccount(c.accountID)
		if err != nil {
			c.Deliver(events.NewErrorEvent("Error processing message"))
			return
		}
		c.Deliver(events.Event{Type: events.TypeAccountBalance, Data: accountBalancePayload{
			AccountID: account.ID,
			Balance:   account.Balance,
			IsActive:  account.IsActive,
		}})

	default:
		c.Deliver(events.NewErrorEvent("Unknown message type: " + msg.Type))
	}
}

func (c *Client) scopedTransactions() ([]*models.Transaction, error) {
	if c.accountID == "" {
		return c.ledger.ListTransactions(), nil
	}
	return c.ledger.ListAccountTransactions(c.accountID)
}
