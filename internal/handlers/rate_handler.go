package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "centavo/internal/errors"
	"centavo/internal/services"
)

// RateHandler handles exchange-rate requests.
type RateHandler struct {
	rateService services.RateServicer
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateService services.RateServicer) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// RateQuery holds the parameters for a rate resolution request.
type RateQuery struct {
	Base  string `form:"base" binding:"required,iso4217"`
	Quote string `form:"quote" binding:"required,iso4217"`
	Date  string `form:"date" binding:"omitempty,rate_date"`
}

// IngestRateRequest is one exchange-rate row to ingest.
type IngestRateRequest struct {
	BaseCurrency  string `json:"base_currency" binding:"required,iso4217"`
	QuoteCurrency string `json:"quote_currency" binding:"required,iso4217"`
	Rate          string `json:"rate" binding:"required"`
	Date          string `json:"date" binding:"required,rate_date"`
	Provider      string `json:"provider" binding:"max=50"`
}

// IngestRatesRequest represents the batch rate ingestion payload.
type IngestRatesRequest struct {
	Rates []IngestRateRequest `json:"rates" binding:"required,min=1,dive"`
}

// GetRate resolves an exchange rate through the fallback chain
// @Summary     Resolve exchange rate
// @Description Resolve a rate for a currency pair on a date, reporting how it was obtained
// @Tags        rates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       base  query string true  "Base currency (ISO 4217)"
// @Param       quote query string true  "Quote currency (ISO 4217)"
// @Param       date  query string false "Date (YYYY-MM-DD, default today)"
// @Success     200 {object} services.ResolvedRate "Resolved rate"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates [get]
func (h *RateHandler) GetRate(c *gin.Context) {
	var query RateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rate, err := h.rateService.GetRateWithFallback(query.Base, query.Quote, query.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rate": rate})
}

// IngestRates handles batch ingestion of exchange rates
// @Summary     Ingest exchange rates
// @Description Store a batch of exchange rates; the whole batch is rejected if any row is invalid
// @Tags        rates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body IngestRatesRequest true "Rates to ingest"
// @Success     201 {object} map[string]int "Number of rates stored"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates [post]
func (h *RateHandler) IngestRates(c *gin.Context) {
	var req IngestRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	inputs := make([]services.RateInput, 0, len(req.Rates))
	for _, r := range req.Rates {
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid rate value"))
			return
		}
		inputs = append(inputs, services.RateInput{
			BaseCurrency:  r.BaseCurrency,
			QuoteCurrency: r.QuoteCurrency,
			Rate:          rate,
			Date:          r.Date,
			Provider:      r.Provider,
		})
	}

	stored, err := h.rateService.IngestRates(inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stored": stored})
}

// GetRateHistory handles the retrieval of a pair's rate history
// @Summary     Get rate history
// @Description Get stored rate observations for a currency pair over the last N days (default 30)
// @Tags        rates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       base  query string true  "Base currency (ISO 4217)"
// @Param       quote query string true  "Quote currency (ISO 4217)"
// @Param       days  query int    false "History window in days"
// @Success     200 {array} services.RatePoint "Rate history"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No rates stored for this pair"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates/history [get]
func (h *RateHandler) GetRateHistory(c *gin.Context) {
	var query RateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	days := 0
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid days"))
			return
		}
		days = parsed
	}

	history, err := h.rateService.GetRateHistory(query.Base, query.Quote, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetSupportedCurrencies lists every currency with at least one stored rate
// @Summary     Get supported currencies
// @Description List the currencies appearing in stored exchange rates
// @Tags        rates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} string "Currency codes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates/currencies [get]
func (h *RateHandler) GetSupportedCurrencies(c *gin.Context) {
	currencies, err := h.rateService.SupportedCurrencies()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}
