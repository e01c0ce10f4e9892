// Package ws exposes the real-time channel: a websocket endpoint per scope
// (global or single-account) that streams transaction and balance events as
// they commit, plus a small request/response protocol for stats and snapshots.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/events"
	"github.com/wrenbank/banking-api/internal/models"
)

// Ledger is the read surface the channel needs from the ledger engine.
type Ledger interface {
	GetAccount(accountID string) (*models.Account, error)
	ListTransactions() []*models.Transaction
	ListAccountTransactions(accountID string) ([]*models.Transaction, error)
}

type connectionEstablishedPayload struct {
	AccountID    string `json:"account_id,omitempty"`
	Message      string `json:"message"`
	InitialCount int    `json:"initial_transactions_count"`
}

type pongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

type accountBalancePayload struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"is_active"`
}

// Handler upgrades HTTP requests into subscriptions.
type Handler struct {
	ledger   Ledger
	registry *events.Registry
	upgrader websocket.Upgrader
}

func NewHandler(ledger Ledger, registry *events.Registry) *Handler {
	return &Handler{
		ledger:   ledger,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The routing layer in front of this service owns origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// StreamAll subscribes the connection to every account's events.
func (h *Handler) StreamAll(c *gin.Context) {
	h.serve(c, "")
}

// StreamAccount subscribes the connection to a single account's events.
func (h *Handler) StreamAccount(c *gin.Context) {
	h.serve(c, c.Param("accountId"))
}

// Stats reports the live connection counts over plain HTTP.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.registry.Stats(),
	})
}

func (h *Handler) serve(c *gin.Context, accountID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	// A scoped connection to an unknown account is refused after the
	// handshake, mirroring a policy-violation close.
	if accountID != "" {
		if _, err := h.ledger.GetAccount(accountID); err != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Account not found"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
	}

	client := newClient(conn, h.ledger, h.registry, accountID)
	client.id = h.registry.Add(client, accountID)
	go client.writePump()

	// Snapshot first, then the connection confirmation. Both go through the
	// send buffer so they cannot interleave with broadcast deliveries.
	transactions, err := client.scopedTransactions()
	if err != nil {
		transactions = nil
	}
	client.Deliver(events.Event{Type: events.TypeInitialData, Data: transactions})
	client.Deliver(events.Event{Type: events.TypeConnectionEstablished, Data: connectionEstablishedPayload{
		AccountID:    accountID,
		Message:      scopeMessage(accountID),
		InitialCount: len(transactions),
	}})

	client.readPump()
}

func scopeMessage(accountID string) string {
	if accountID == "" {
		return "Connected to global transaction stream"
	}
	return "Connected to account-specific transaction stream"
}
