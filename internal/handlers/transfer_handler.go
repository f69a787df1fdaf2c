package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"centavo/internal/calc"
	apperrors "centavo/internal/errors"
	"centavo/internal/middleware"
	"centavo/internal/services"
)

// TransferHandler handles transfer-related requests.
type TransferHandler struct {
	transferService services.TransferServicer
	auditService    services.AuditServicer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService services.TransferServicer, auditService services.AuditServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService, auditService: auditService}
}

// CreateTransferRequest represents the request payload for creating a transfer.
// Amount is a decimal string in the source account's currency; calculator
// expressions like "120+35.50" are also accepted. ExchangeRate, when provided,
// overrides automatic rate resolution.
type CreateTransferRequest struct {
	FromAccountID string  `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string  `json:"to_account_id" binding:"required,uuid"`
	Amount        string  `json:"amount" binding:"required"`
	Description   string  `json:"description" binding:"max=500"`
	Date          string  `json:"date" binding:"omitempty"`
	ExchangeRate  *string `json:"exchange_rate"`
	FeeMinor      int64   `json:"fee_minor" binding:"gte=0"`
}

// parseAmount reads a plain decimal string, falling back to calculator-style
// expression evaluation ("120+35.50") for quick-entry clients.
func parseAmount(value string) (decimal.Decimal, error) {
	if amount, err := decimal.NewFromString(value); err == nil {
		return amount, nil
	}
	return calc.Evaluate(value)
}

// CreateTransfer handles the creation of a new transfer
// @Summary     Create a transfer
// @Description Move funds between two accounts atomically, converting currency when needed
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} services.TransferResult "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient balance, or no usable exchange rate"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transfers [post]
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid amount"))
		return
	}

	var exchangeRate *decimal.Decimal
	if req.ExchangeRate != nil {
		rate, err := decimal.NewFromString(*req.ExchangeRate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid exchange rate"))
			return
		}
		exchangeRate = &rate
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			respondWithError(c, err)
			return
		}
	}

	result, err := h.transferService.CreateTransfer(userID, services.CreateTransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		AmountMajor:   amount,
		Description:   req.Description,
		Date:          date,
		ExchangeRate:  exchangeRate,
		FeeMinor:      req.FeeMinor,
	})
	if err != nil {
		middleware.RecordTransfer("rejected")
		respondWithError(c, err)
		return
	}
	middleware.RecordTransfer("ok")

	h.auditService.Log(userID, "CREATE_TRANSFER", "transfer", result.TransferID, c.ClientIP(),
		map[string]interface{}{
			"from_account_id": req.FromAccountID,
			"to_account_id":   req.ToAccountID,
			"amount":          req.Amount,
			"rate_source":     result.RateSource,
		})

	c.JSON(http.StatusCreated, gin.H{"transfer": result})
}

// GetTransferByID handles the retrieval of a specific transfer
// @Summary     Get transfer by ID
// @Description Get a transfer and both of its transaction legs
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transfer ID"
// @Success     200 {object} models.Transfer "Transfer details"
// @Failure     400 {object} ErrorResponse "Invalid transfer ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transfer not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transfers/{id} [get]
func (h *TransferHandler) GetTransferByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transferID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfer, err := h.transferService.GetTransferByID(userID, transferID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfer": transfer})
}

// DeleteTransfer handles deleting a transfer
// @Summary     Delete transfer
// @Description Delete a transfer, removing both legs and restoring both account balances
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transfer ID"
// @Success     204 "Transfer deleted"
// @Failure     400 {object} ErrorResponse "Invalid transfer ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transfer not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transfers/{id} [delete]
func (h *TransferHandler) DeleteTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transferID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transferService.DeleteTransfer(userID, transferID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSFER", "transfer", transferID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
