package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/pagination"
	"centavo/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	AccountID   string  `json:"account_id" binding:"required,uuid"`
	CategoryID  *string `json:"category_id" binding:"omitempty,uuid"`
	Type        string  `json:"type" binding:"required,transaction_type"`
	AmountMinor int64   `json:"amount_minor" binding:"required,gt=0"`
	Description string  `json:"description" binding:"max=500"`
	Date        string  `json:"date" binding:"omitempty"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// The account and type are fixed at creation.
type UpdateTransactionRequest struct {
	CategoryID  *string `json:"category_id"`
	AmountMinor *int64  `json:"amount_minor" binding:"omitempty,gt=0"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Date        *string `json:"date"`
}

// TransactionListQuery holds the filter parameters for listing transactions.
type TransactionListQuery struct {
	pagination.PageRequest
	FromDate       string  `form:"from_date"`
	ToDate         string  `form:"to_date"`
	Type           string  `form:"type" binding:"omitempty,transaction_type"`
	CategoryID     string  `form:"category_id" binding:"omitempty,uuid"`
	AccountID      string  `form:"account_id" binding:"omitempty,uuid"`
	MinAmountMinor *int64  `form:"min_amount_minor"`
	MaxAmountMinor *int64  `form:"max_amount_minor"`
	Search         string  `form:"search" binding:"max=100"`
}

// parseDate accepts either a plain date or a full RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense transaction; the account balance is updated atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} services.CreatedTransaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			respondWithError(c, err)
			return
		}
	}

	created, err := h.transactionService.CreateTransaction(userID, services.CreateTransactionInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Type:        models.TransactionType(req.Type),
		AmountMinor: req.AmountMinor,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", created.Transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount_minor": req.AmountMinor})

	c.JSON(http.StatusCreated, gin.H{
		"transaction": created.Transaction,
		"rate_source": created.RateSource,
	})
}

// GetUserTransactions handles the retrieval of transactions with filters
// @Summary     Get user transactions
// @Description Get a paginated, filterable list of transactions for the authenticated user
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page             query int    false "Page number (default 1)"
// @Param       page_size        query int    false "Items per page (default 20, max 100)"
// @Param       from_date        query string false "Start date (inclusive)"
// @Param       to_date          query string false "End date (inclusive)"
// @Param       type             query string false "Transaction type"
// @Param       category_id      query string false "Category ID"
// @Param       account_id       query string false "Account ID"
// @Param       min_amount_minor query int    false "Minimum amount in minor units"
// @Param       max_amount_minor query int    false "Maximum amount in minor units"
// @Param       search           query string false "Search in description"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		MinAmountMinor: query.MinAmountMinor,
		MaxAmountMinor: query.MaxAmountMinor,
		Search:         query.Search,
	}
	if query.FromDate != "" {
		from, err := parseDate(query.FromDate)
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.FromDate = &from
	}
	if query.ToDate != "" {
		to, err := parseDate(query.ToDate)
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.ToDate = &to
	}
	if query.Type != "" {
		txType := models.TransactionType(query.Type)
		filter.Type = &txType
	}
	if query.CategoryID != "" {
		filter.CategoryID = &query.CategoryID
	}
	if query.AccountID != "" {
		filter.AccountID = &query.AccountID
	}

	result, err := h.transactionService.GetUserTransactions(userID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID for the authenticated user
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating a transaction
// @Summary     Update transaction
// @Description Update a transaction; the account balance is reconciled atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Updated transaction fields"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input, transfer leg, or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	patch := services.UpdateTransactionInput{
		CategoryID:  req.CategoryID,
		AmountMinor: req.AmountMinor,
		Description: req.Description,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			respondWithError(c, err)
			return
		}
		patch.Date = &date
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete a transaction and revert its effect on the account balance
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID or transfer leg"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// GetMonthlyReport handles the monthly report aggregation
// @Summary     Get monthly report
// @Description Get income, expense and category breakdown for one month in the base currency
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       month query string true "Month (YYYY-MM or YYYYMM)"
// @Success     200 {object} services.MonthlyReport "Monthly report"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/monthly [get]
func (h *TransactionHandler) GetMonthlyReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.transactionService.GetMonthlyReport(userID, c.Query("month"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetCategoryBreakdown handles the category breakdown aggregation
// @Summary     Get category breakdown
// @Description Get per-category totals and percentages over a date range
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from_date query string true  "Start date (inclusive)"
// @Param       to_date   query string true  "End date (inclusive)"
// @Param       type      query string false "Transaction type (income or expense, default expense)"
// @Success     200 {array} services.CategoryBreakdownItem "Category breakdown"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/categories [get]
func (h *TransactionHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, err := parseDate(c.Query("from_date"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseDate(c.Query("to_date"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	var txType *models.TransactionType
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		txType = &t
	}

	breakdown, err := h.transactionService.GetCategoryBreakdown(userID, from, to, txType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"breakdown": breakdown})
}

// GetCashFlow handles the cash-flow aggregation
// @Summary     Get cash flow
// @Description Get bucketed income, expense and cumulative net flow over a date range
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from_date query string true  "Start date (inclusive)"
// @Param       to_date   query string true  "End date (inclusive)"
// @Param       group_by  query string false "Bucket size: day, week or month (default month)"
// @Success     200 {array} services.CashFlowPoint "Cash flow points"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/cashflow [get]
func (h *TransactionHandler) GetCashFlow(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, err := parseDate(c.Query("from_date"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseDate(c.Query("to_date"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupBy := services.CashFlowGrouping(c.DefaultQuery("group_by", string(services.GroupByMonth)))

	points, err := h.transactionService.GetCashFlowData(userID, from, to, groupBy)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cash_flow": points})
}
