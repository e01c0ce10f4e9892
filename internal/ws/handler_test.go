package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/events"
	"github.com/wrenbank/banking-api/internal/ledger"
	"github.com/wrenbank/banking-api/internal/models"
	"github.com/wrenbank/banking-api/internal/repository"
)

// ---- stub ledger ----

type stubLedger struct {
	accounts     map[string]*models.Account
	transactions []*models.Transaction
}

func (s *stubLedger) GetAccount(accountID string) (*models.Account, error) {
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *stubLedger) ListTransactions() []*models.Transaction {
	return s.transactions
}

func (s *stubLedger) ListAccountTransactions(accountID string) ([]*models.Transaction, error) {
	if _, ok := s.accounts[accountID]; !ok {
		return nil, ledger.ErrAccountNotFound
	}
	var out []*models.Transaction
	for _, transaction := range s.transactions {
		if transaction.AccountID == accountID {
			out = append(out, transaction)
		}
	}
	return out, nil
}

// ---- helpers ----

func newWSServer(t *testing.T, l Ledger, registry *events.Registry) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(l, registry)
	router.GET("/ws/transactions", h.StreamAll)
	router.GET("/ws/transactions/:accountId", h.StreamAccount)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type receivedEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) receivedEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event receivedEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

// readHandshake consumes the initial_data snapshot and connection confirmation
// every accepted connection receives first.
func readHandshake(t *testing.T, conn *websocket.Conn) (initial, established receivedEvent) {
	t.Helper()
	initial = readEvent(t, conn)
	if initial.Type != events.TypeInitialData {
		t.Fatalf("expected %s first, got %s", events.TypeInitialData, initial.Type)
	}
	established = readEvent(t, conn)
	if established.Type != events.TypeConnectionEstablished {
		t.Fatalf("expected %s second, got %s", events.TypeConnectionEstablished, established.Type)
	}
	return initial, established
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

func errorMessage(t *testing.T, event receivedEvent) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	return payload.Message
}

func testStubLedger() *stubLedger {
	return &stubLedger{
		accounts: map[string]*models.Account{
			"acc-001": {
				ID:            "acc-001",
				AccountHolder: "Alice Johnson",
				AccountType:   models.AccountTypeChecking,
				Balance:       decimal.NewFromInt(500),
				CreatedAt:     time.Now().UTC(),
				IsActive:      true,
			},
		},
		transactions: []*models.Transaction{
			{ID: "tx-1", AccountID: "acc-001", Amount: decimal.NewFromInt(100), Type: models.TransactionTypeDeposit, Timestamp: time.Now().UTC(), BalanceAfter: decimal.NewFromInt(100)},
			{ID: "tx-2", AccountID: "acc-001", Amount: decimal.NewFromInt(200), Type: models.TransactionTypeDeposit, Timestamp: time.Now().UTC(), BalanceAfter: decimal.NewFromInt(300)},
			{ID: "tx-3", AccountID: "acc-002", Amount: decimal.NewFromInt(50), Type: models.TransactionTypeDeposit, Timestamp: time.Now().UTC(), BalanceAfter: decimal.NewFromInt(50)},
		},
	}
}

// ---- tests ----

func TestGlobalConnectionHandshake(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	initial, established := readHandshake(t, conn)

	var snapshot []models.Transaction
	if err := json.Unmarshal(initial.Data, &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snapshot) != 3 {
		t.Errorf("expected 3 transactions in snapshot, got %d", len(snapshot))
	}

	var payload struct {
		AccountID string `json:"account_id"`
		Message   string `json:"message"`
		Count     int    `json:"initial_transactions_count"`
	}
	if err := json.Unmarshal(established.Data, &payload); err != nil {
		t.Fatalf("unmarshal confirmation: %v", err)
	}
	if payload.Message != "Connected to global transaction stream" {
		t.Errorf("unexpected message %q", payload.Message)
	}
	if payload.AccountID != "" {
		t.Errorf("global connection should carry no account id, got %q", payload.AccountID)
	}
	if payload.Count != 3 {
		t.Errorf("expected initial count 3, got %d", payload.Count)
	}
}

func TestScopedConnectionHandshake(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions/acc-001")
	initial, established := readHandshake(t, conn)

	var snapshot []models.Transaction
	if err := json.Unmarshal(initial.Data, &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snapshot) != 2 {
		t.Errorf("expected 2 transactions for acc-001, got %d", len(snapshot))
	}

	var payload struct {
		AccountID string `json:"account_id"`
	}
	if err := json.Unmarshal(established.Data, &payload); err != nil {
		t.Fatalf("unmarshal confirmation: %v", err)
	}
	if payload.AccountID != "acc-001" {
		t.Errorf("expected account id acc-001, got %q", payload.AccountID)
	}
}

func TestScopedConnectionUnknownAccountRefused(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions/no-such-account")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("expected close code %d, got %d", websocket.ClosePolicyViolation, closeErr.Code)
	}
	if registry.Stats().TotalConnections != 0 {
		t.Errorf("refused connection must not be registered")
	}
}

func TestPingPong(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	readHandshake(t, conn)

	sendMessage(t, conn, map[string]interface{}{"type": "ping"})
	event := readEvent(t, conn)
	if event.Type != events.TypePong {
		t.Errorf("expected pong, got %s", event.Type)
	}
}

func TestStatsRequest(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	readHandshake(t, conn)

	sendMessage(t, conn, map[string]interface{}{"type": "get_stats"})
	event := readEvent(t, conn)
	if event.Type != events.TypeStats {
		t.Fatalf("expected stats, got %s", event.Type)
	}
	var stats events.Stats
	if err := json.Unmarshal(event.Data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.TotalConnections != 1 || stats.GlobalConnections != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRecentTransactionsLimit(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	readHandshake(t, conn)

	sendMessage(t, conn, map[string]interface{}{"type": "get_recent_transactions", "limit": 2})
	event := readEvent(t, conn)
	if event.Type != events.TypeRecentTransactions {
		t.Fatalf("expected recent_transactions, got %s", event.Type)
	}
	var transactions []models.Transaction
	if err := json.Unmarshal(event.Data, &transactions); err != nil {
		t.Fatalf("unmarshal transactions: %v", err)
	}
	if len(transactions) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(transactions))
	}
}

func TestAccountBalanceRequiresScopedConnection(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	readHandshake(t, conn)

	sendMessage(t, conn, map[string]interface{}{"type": "get_account_balance"})
	event := readEvent(t, conn)
	if event.Type != events.TypeError {
		t.Fatalf("expected error, got %s", event.Type)
	}
	if msg := errorMessage(t, event); !strings.Contains(msg, "account-specific") {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestAccountBalanceOnScopedConnection(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions/acc-001")
	readHandshake(t, conn)

	sendMessage(t, conn, map[string]interface{}{"type": "get_account_balance"})
	event := readEvent(t, conn)
	if event.Type != events.TypeAccountBalance {
		t.Fatalf("expected account_balance, got %s", event.Type)
	}
	var payload struct {
		AccountID string          `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
		IsActive  bool            `json:"is_active"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("unmarshal balance: %v", err)
	}
	if payload.AccountID != "acc-001" || !payload.Balance.Equal(decimal.NewFromInt(500)) || !payload.IsActive {
		t.Errorf("unexpected balance payload %+v", payload)
	}
}

func TestUnknownMessageType(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	readHandshake(t, conn)

	sendMessage(t, conn, map[string]interface{}{"type": "bogus"})
	event := readEvent(t, conn)
	if event.Type != events.TypeError {
		t.Fatalf("expected error, got %s", event.Type)
	}
	if msg := errorMessage(t, event); msg != "Unknown message type: bogus" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestInvalidJSONGetsErrorEvent(t *testing.T) {
	registry := events.NewRegistry()
	srv := newWSServer(t, testStubLedger(), registry)

	conn := dialWS(t, srv, "/ws/transactions")
	readHandshake(t, conn)

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	event := readEvent(t, conn)
	if event.Type != events.TypeError {
		t.Fatalf("expected error, got %s", event.Type)
	}
	if msg := errorMessage(t, event); msg != "Invalid JSON format" {
		t.Errorf("unexpected error message %q", msg)
	}
}

// TestDepositBroadcast runs the full pipeline: ledger engine, broadcaster and
// websocket layer wired together as in the composition root.
func TestDepositBroadcast(t *testing.T) {
	accounts := repository.NewInMemoryAccountRepository()
	transactions := repository.NewInMemoryTransactionRepository()
	registry := events.NewRegistry()
	broadcaster := events.NewBroadcaster(registry, nil)
	svc := ledger.NewService(accounts, transactions, broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go broadcaster.Run(ctx)

	srv := newWSServer(t, svc, registry)

	account, err := svc.CreateAccount(ledger.CreateAccountCommand{
		AccountHolder: "Alice Johnson",
		AccountType:   models.AccountTypeChecking,
		Balance:       decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	conn := dialWS(t, srv, "/ws/transactions/"+account.ID)
	readHandshake(t, conn)

	if _, err := svc.Deposit(ledger.DepositCommand{AccountID: account.ID, Amount: decimal.NewFromInt(40)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	event := readEvent(t, conn)
	if event.Type != events.TypeTransactionUpdate {
		t.Fatalf("expected transaction_update, got %s", event.Type)
	}
	var committed models.Transaction
	if err := json.Unmarshal(event.Data, &committed); err != nil {
		t.Fatalf("unmarshal transaction: %v", err)
	}
	if committed.AccountID != account.ID || !committed.Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("unexpected transaction %+v", committed)
	}
	if !committed.BalanceAfter.Equal(decimal.NewFromInt(140)) {
		t.Errorf("expected balance_after 140, got %s", committed.BalanceAfter)
	}

	event = readEvent(t, conn)
	if event.Type != events.TypeBalanceUpdate {
		t.Fatalf("expected balance_update, got %s", event.Type)
	}
	var balance events.BalanceUpdatePayload
	if err := json.Unmarshal(event.Data, &balance); err != nil {
		t.Fatalf("unmarshal balance update: %v", err)
	}
	if balance.AccountID != account.ID || !balance.NewBalance.Equal(decimal.NewFromInt(140)) {
		t.Errorf("unexpected balance payload %+v", balance)
	}
}
