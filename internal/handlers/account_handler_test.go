package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/pagination"
	"centavo/internal/services"
)

// --- mock account service ---

type mockAccountService struct {
	createAccountFn     func(userID string, input services.CreateAccountInput) (*models.Account, error)
	getUserAccountsFn   func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	getAccountByIDFn    func(userID, accountID string) (*models.Account, error)
	updateAccountFn     func(userID, accountID string, fields services.AccountUpdateFields) (*models.Account, error)
	deactivateAccountFn func(userID, accountID string) error
	deleteAccountFn     func(userID, accountID string) error
	adjustBalanceFn     func(tx *gorm.DB, userID, accountID string, deltaMinor int64) (*models.Account, error)
	updateBalancesFn    func(userID string, updates []services.BalanceUpdate) ([]models.Account, error)
	verifyLedgerFn      func(userID, accountID string) error
}

func (m *mockAccountService) CreateAccount(userID string, input services.CreateAccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(userID, input)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	if m.getUserAccountsFn != nil {
		return m.getUserAccountsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Account{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAccountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(userID, accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) UpdateAccount(userID, accountID string, fields services.AccountUpdateFields) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(userID, accountID, fields)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) DeactivateAccount(userID, accountID string) error {
	if m.deactivateAccountFn != nil {
		return m.deactivateAccountFn(userID, accountID)
	}
	return nil
}

func (m *mockAccountService) DeleteAccount(userID, accountID string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(userID, accountID)
	}
	return nil
}

func (m *mockAccountService) AdjustBalance(tx *gorm.DB, userID, accountID string, deltaMinor int64) (*models.Account, error) {
	if m.adjustBalanceFn != nil {
		return m.adjustBalanceFn(tx, userID, accountID, deltaMinor)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) UpdateBalances(userID string, updates []services.BalanceUpdate) ([]models.Account, error) {
	if m.updateBalancesFn != nil {
		return m.updateBalancesFn(userID, updates)
	}
	return nil, nil
}

func (m *mockAccountService) VerifyLedger(userID, accountID string) error {
	if m.verifyLedgerFn != nil {
		return m.verifyLedgerFn(userID, accountID)
	}
	return nil
}

// verify interface compliance
var _ services.AccountServicer = (*mockAccountService)(nil)

const testAccountID = "01923456-7890-7abc-8def-0123456789cd"

func setupAccountRouter(handler *AccountHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/accounts", handler.CreateAccount)
	auth.GET("/accounts", handler.GetUserAccounts)
	auth.PUT("/accounts/balances", handler.UpdateBalances)
	auth.GET("/accounts/:id", handler.GetAccountByID)
	auth.PUT("/accounts/:id", handler.UpdateAccount)
	auth.DELETE("/accounts/:id", handler.DeleteAccount)
	auth.POST("/accounts/:id/deactivate", handler.DeactivateAccount)
	auth.GET("/accounts/:id/verify", handler.VerifyLedger)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		acctSvc := &mockAccountService{
			createAccountFn: func(userID string, input services.CreateAccountInput) (*models.Account, error) {
				return &models.Account{
					Base:                models.Base{ID: testAccountID},
					UserID:              userID,
					Name:                input.Name,
					Type:                input.Type,
					Currency:            input.Currency,
					BalanceMinor:        input.InitialBalanceMinor,
					InitialBalanceMinor: input.InitialBalanceMinor,
					IsActive:            true,
				}, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts",
			`{"name":"Savings","type":"bank","currency":"USD","initial_balance_minor":5000}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		acct := result["account"].(map[string]interface{})
		if acct["name"] != "Savings" {
			t.Errorf("expected Savings, got %v", acct["name"])
		}
		if acct["balance_minor"].(float64) != 5000 {
			t.Errorf("expected balance 5000, got %v", acct["balance_minor"])
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"type":"bank","currency":"USD"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid account type", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"mattress","currency":"USD"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid currency", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"bank","currency":"INVALID"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on negative initial balance", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts",
			`{"name":"Test","type":"bank","currency":"USD","initial_balance_minor":-100}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/accounts", handler.CreateAccount)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"bank","currency":"USD"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_GetUserAccounts(t *testing.T) {
	t.Run("returns 200 with paginated accounts", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getUserAccountsFn: func(_ string, _ pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
				resp := pagination.NewPageResponse([]models.Account{
					{Name: "Cash"},
					{Name: "Investment"},
				}, 1, 20, 2)
				return &resp, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 accounts, got %d", len(data))
		}
		if result["total_items"].(float64) != 2 {
			t.Errorf("expected total_items=2, got %v", result["total_items"])
		}
	})

	t.Run("passes pagination params to service", func(t *testing.T) {
		var capturedPage pagination.PageRequest
		acctSvc := &mockAccountService{
			getUserAccountsFn: func(_ string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
				capturedPage = page
				resp := pagination.NewPageResponse([]models.Account{}, 2, 5, 0)
				return &resp, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		doRequest(r, "GET", "/accounts?page=2&page_size=5", "")

		if capturedPage.Page != 2 {
			t.Errorf("expected page=2, got %d", capturedPage.Page)
		}
		if capturedPage.PageSize != 5 {
			t.Errorf("expected page_size=5, got %d", capturedPage.PageSize)
		}
	})
}

func TestAccountHandler_GetAccountByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(_, accountID string) (*models.Account, error) {
				return &models.Account{
					Base: models.Base{ID: accountID},
					Name: "Savings",
					Type: models.AccountTypeBank,
				}, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testAccountID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		acct := result["account"].(map[string]interface{})
		if acct["name"] != "Savings" {
			t.Errorf("expected Savings, got %v", acct["name"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(_, _ string) (*models.Account, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testAccountID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_UpdateBalances(t *testing.T) {
	t.Run("returns 200 and forwards all updates", func(t *testing.T) {
		var captured []services.BalanceUpdate
		acctSvc := &mockAccountService{
			updateBalancesFn: func(_ string, updates []services.BalanceUpdate) ([]models.Account, error) {
				captured = updates
				accounts := make([]models.Account, len(updates))
				for i, u := range updates {
					accounts[i] = models.Account{Base: models.Base{ID: u.AccountID}, BalanceMinor: u.NewBalanceMinor}
				}
				return accounts, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "PUT", "/accounts/balances",
			`{"updates":[{"account_id":"`+testAccountID+`","new_balance_minor":12345}]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(captured) != 1 || captured[0].NewBalanceMinor != 12345 {
			t.Errorf("expected one update with 12345, got %+v", captured)
		}
	})

	t.Run("returns 400 on empty updates", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "PUT", "/accounts/balances", `{"updates":[]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when an account is missing", func(t *testing.T) {
		acctSvc := &mockAccountService{
			updateBalancesFn: func(_ string, _ []services.BalanceUpdate) ([]models.Account, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "PUT", "/accounts/balances",
			`{"updates":[{"account_id":"`+testAccountID+`","new_balance_minor":1}]}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_VerifyLedger(t *testing.T) {
	t.Run("returns 200 when consistent", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/verify", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["consistent"] != true {
			t.Errorf("expected consistent=true, got %v", result["consistent"])
		}
	})

	t.Run("surfaces ledger inconsistency", func(t *testing.T) {
		acctSvc := &mockAccountService{
			verifyLedgerFn: func(_, _ string) error {
				return apperrors.ErrLedgerInconsistent
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/verify", "")

		if rec.Code == http.StatusOK {
			t.Fatal("expected an error status")
		}
		assertErrorCode(t, parseJSON(t, rec), "LEDGER_INCONSISTENT")
	})
}

func TestAccountHandler_DeleteAccount(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "DELETE", "/accounts/"+testAccountID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("returns 409 when account has history", func(t *testing.T) {
		acctSvc := &mockAccountService{
			deleteAccountFn: func(_, _ string) error {
				return apperrors.ErrAccountInUse
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "DELETE", "/accounts/"+testAccountID, "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_IN_USE")
	})
}
