package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wrenbank/banking-api/internal/ledger"
	"github.com/wrenbank/banking-api/internal/middleware"
)

// respondLedgerError maps domain errors to HTTP status codes. Anything the
// ledger did not classify is a 500.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, ledger.ErrTransactionNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, ledger.ErrInvalidAmount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Amount must be greater than zero")
	case errors.Is(err, ledger.ErrInvalidAccountType):
		middleware.RespondWithError(c, http.StatusBadRequest, "Unsupported account type")
	case errors.Is(err, ledger.ErrSameAccount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Cannot transfer to the same account")
	case errors.Is(err, ledger.ErrInactiveAccount):
		middleware.RespondWithError(c, http.StatusConflict, "Account is not active")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Insufficient funds")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
