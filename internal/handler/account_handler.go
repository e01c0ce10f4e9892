package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/ledger"
	"github.com/wrenbank/banking-api/internal/middleware"
	"github.com/wrenbank/banking-api/internal/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(ledger.CreateAccountCommand) (*models.Account, error)
	UpdateAccount(ledger.UpdateAccountCommand) (*models.Account, error)
	DeactivateAccount(accountID string) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(accountID string) (*models.Account, error)
	ListAccounts() []*models.Account
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	AccountHolder string          `json:"account_holder" validate:"required"`
	AccountType   string          `json:"account_type" validate:"required,oneof=checking savings credit"`
	Balance       decimal.Decimal `json:"balance"`
}

type UpdateAccountRequest struct {
	AccountHolder string `json:"account_holder" validate:"required"`
	AccountType   string `json:"account_type" validate:"required,oneof=checking savings credit"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.CreateAccount(ledger.CreateAccountCommand{
		AccountHolder: req.AccountHolder,
		AccountType:   req.AccountType,
		Balance:       req.Balance,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// ListAccounts returns active accounts only.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ListAccounts())
}

// GetAccount returns the account regardless of active flag; deactivated
// accounts stay readable.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.queries.GetAccount(c.Param("accountId"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// UpdateAccount changes holder and type. Balance is immutable via this path.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.UpdateAccount(ledger.UpdateAccountCommand{
		AccountID:     c.Param("accountId"),
		AccountHolder: req.AccountHolder,
		AccountType:   req.AccountType,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// DeleteAccount deactivates the account (soft delete).
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if err := h.commands.DeactivateAccount(accountID); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account " + accountID + " has been deactivated"})
}
