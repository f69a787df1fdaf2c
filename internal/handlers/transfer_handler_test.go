package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/services"
)

// --- mock transfer service ---

type mockTransferService struct {
	createTransferFn  func(userID string, input services.CreateTransferInput) (*services.TransferResult, error)
	getTransferByIDFn func(userID, transferID string) (*models.Transfer, error)
	deleteTransferFn  func(userID, transferID string) error
}

func (m *mockTransferService) CreateTransfer(userID string, input services.CreateTransferInput) (*services.TransferResult, error) {
	if m.createTransferFn != nil {
		return m.createTransferFn(userID, input)
	}
	return &services.TransferResult{}, nil
}

func (m *mockTransferService) GetTransferByID(userID, transferID string) (*models.Transfer, error) {
	if m.getTransferByIDFn != nil {
		return m.getTransferByIDFn(userID, transferID)
	}
	return &models.Transfer{}, nil
}

func (m *mockTransferService) DeleteTransfer(userID, transferID string) error {
	if m.deleteTransferFn != nil {
		return m.deleteTransferFn(userID, transferID)
	}
	return nil
}

// verify interface compliance
var _ services.TransferServicer = (*mockTransferService)(nil)

const (
	testFromAccountID = "01923456-7890-7abc-8def-0123456700aa"
	testToAccountID   = "01923456-7890-7abc-8def-0123456700bb"
	testTransferID    = "01923456-7890-7abc-8def-0123456700cc"
)

func setupTransferRouter(handler *TransferHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transfers", handler.CreateTransfer)
	auth.GET("/transfers/:id", handler.GetTransferByID)
	auth.DELETE("/transfers/:id", handler.DeleteTransfer)
	return r
}

func TestTransferHandler_CreateTransfer(t *testing.T) {
	t.Run("returns 201 with both legs", func(t *testing.T) {
		var captured services.CreateTransferInput
		transferSvc := &mockTransferService{
			createTransferFn: func(_ string, input services.CreateTransferInput) (*services.TransferResult, error) {
				captured = input
				return &services.TransferResult{
					TransferID:      testTransferID,
					FromTransaction: &models.Transaction{Type: models.TransactionTypeTransferOut},
					ToTransaction:   &models.Transaction{Type: models.TransactionTypeTransferIn},
					Rate:            decimal.NewFromFloat(1.08),
					RateSource:      services.RateSourceExact,
				}, nil
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testFromAccountID+`","to_account_id":"`+testToAccountID+`","amount":"100.00","fee_minor":50}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.AmountMajor.Equal(decimal.RequireFromString("100.00")) {
			t.Errorf("expected amount 100.00, got %s", captured.AmountMajor)
		}
		if captured.FeeMinor != 50 {
			t.Errorf("expected fee 50, got %d", captured.FeeMinor)
		}
		result := parseJSON(t, rec)
		transfer := result["transfer"].(map[string]interface{})
		if transfer["transfer_id"] != testTransferID {
			t.Errorf("expected transfer ID, got %v", transfer["transfer_id"])
		}
	})

	t.Run("forwards a manual exchange rate", func(t *testing.T) {
		var captured services.CreateTransferInput
		transferSvc := &mockTransferService{
			createTransferFn: func(_ string, input services.CreateTransferInput) (*services.TransferResult, error) {
				captured = input
				return &services.TransferResult{}, nil
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testFromAccountID+`","to_account_id":"`+testToAccountID+`","amount":"50","exchange_rate":"139.5"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.ExchangeRate == nil || !captured.ExchangeRate.Equal(decimal.RequireFromString("139.5")) {
			t.Error("expected manual exchange rate to reach the service")
		}
	})

	t.Run("evaluates expression amounts", func(t *testing.T) {
		var captured services.CreateTransferInput
		transferSvc := &mockTransferService{
			createTransferFn: func(_ string, input services.CreateTransferInput) (*services.TransferResult, error) {
				captured = input
				return &services.TransferResult{}, nil
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testFromAccountID+`","to_account_id":"`+testToAccountID+`","amount":"120+35.50"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.AmountMajor.Equal(decimal.RequireFromString("155.5")) {
			t.Errorf("expected amount 155.5, got %s", captured.AmountMajor)
		}
	})

	t.Run("returns 400 on malformed amount", func(t *testing.T) {
		handler := NewTransferHandler(&mockTransferService{}, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testFromAccountID+`","to_account_id":"`+testToAccountID+`","amount":"abc"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 when no rate is available", func(t *testing.T) {
		transferSvc := &mockTransferService{
			createTransferFn: func(_ string, _ services.CreateTransferInput) (*services.TransferResult, error) {
				return nil, apperrors.ErrCurrencyMismatchWithoutRate
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testFromAccountID+`","to_account_id":"`+testToAccountID+`","amount":"100"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CURRENCY_MISMATCH_WITHOUT_RATE")
	})

	t.Run("returns 400 on same account", func(t *testing.T) {
		transferSvc := &mockTransferService{
			createTransferFn: func(_ string, _ services.CreateTransferInput) (*services.TransferResult, error) {
				return nil, apperrors.ErrSameAccountTransfer
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testFromAccountID+`","to_account_id":"`+testFromAccountID+`","amount":"100"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SAME_ACCOUNT_TRANSFER")
	})
}

func TestTransferHandler_GetTransferByID(t *testing.T) {
	t.Run("returns 200 with legs", func(t *testing.T) {
		transferSvc := &mockTransferService{
			getTransferByIDFn: func(_, transferID string) (*models.Transfer, error) {
				return &models.Transfer{
					Base:     models.Base{ID: transferID},
					FeeMinor: 150,
				}, nil
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "GET", "/transfers/"+testTransferID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		transfer := result["transfer"].(map[string]interface{})
		if transfer["fee_minor"].(float64) != 150 {
			t.Errorf("expected fee 150, got %v", transfer["fee_minor"])
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		transferSvc := &mockTransferService{
			getTransferByIDFn: func(_, _ string) (*models.Transfer, error) {
				return nil, apperrors.ErrTransferNotFound
			},
		}
		handler := NewTransferHandler(transferSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "GET", "/transfers/"+testTransferID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransferHandler_DeleteTransfer(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		handler := NewTransferHandler(&mockTransferService{}, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "DELETE", "/transfers/"+testTransferID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}
