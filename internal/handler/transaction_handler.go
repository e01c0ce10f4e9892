package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/ledger"
	"github.com/wrenbank/banking-api/internal/middleware"
	"github.com/wrenbank/banking-api/internal/models"
)

// TransactionCommander defines the write-side operations used by
// TransactionHandler.
type TransactionCommander interface {
	Deposit(ledger.DepositCommand) (*models.Transaction, error)
	Withdraw(ledger.WithdrawCommand) (*models.Transaction, error)
	Transfer(ledger.TransferCommand) ([]*models.Transaction, error)
}

// TransactionQuerier defines the read-side operations used by
// TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(transactionID string) (*models.Transaction, error)
	ListTransactions() []*models.Transaction
	ListAccountTransactions(accountID string) ([]*models.Transaction, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

type CreateTransactionRequest struct {
	AccountID       string          `json:"account_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	TransactionType string          `json:"transaction_type" validate:"required,oneof=deposit withdrawal"`
	Description     string          `json:"description"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" validate:"required"`
	ToAccountID   string          `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Description   string          `json:"description"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

// CreateTransaction records a deposit or withdrawal against one account.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	var (
		transaction *models.Transaction
		err         error
	)
	switch req.TransactionType {
	case models.TransactionTypeDeposit:
		transaction, err = h.commands.Deposit(ledger.DepositCommand{
			AccountID:   req.AccountID,
			Amount:      req.Amount,
			Description: req.Description,
		})
	case models.TransactionTypeWithdrawal:
		transaction, err = h.commands.Withdraw(ledger.WithdrawCommand{
			AccountID:   req.AccountID,
			Amount:      req.Amount,
			Description: req.Description,
		})
	}
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transaction)
}

// Transfer moves money between two accounts and returns both legs,
// withdrawal side first.
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	transactions, err := h.commands.Transfer(ledger.TransferCommand{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transactions)
}

// ListTransactions returns every transaction, newest first.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ListTransactions())
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.queries.GetTransaction(c.Param("transactionId"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// ListAccountTransactions returns one account's transactions, newest first.
func (h *TransactionHandler) ListAccountTransactions(c *gin.Context) {
	transactions, err := h.queries.ListAccountTransactions(c.Param("accountId"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}
