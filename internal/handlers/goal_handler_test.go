package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/pagination"
	"centavo/internal/services"
)

// --- mock goal service ---

type mockGoalService struct {
	createGoalFn              func(userID string, input services.CreateGoalInput) (*models.SavingsGoal, error)
	getUserGoalsFn            func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error)
	getGoalByIDFn             func(userID, goalID string) (*models.SavingsGoal, error)
	getGoalWithProgressFn     func(userID, goalID string) (*services.GoalProgress, error)
	addContributionFn         func(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error)
	removeContributionFn      func(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error)
	syncLinkedGoalsFn         func(userID string) (int, error)
	getGoalsNearingDeadlineFn func(userID string, days int) ([]services.GoalProgress, error)
	getGoalsSummaryFn         func(userID string) (*services.GoalsSummary, error)
	updateGoalFn              func(userID, goalID string, name *string, targetBaseMinor *int64, targetDate *time.Time, isActive *bool) (*models.SavingsGoal, error)
	deleteGoalFn              func(userID, goalID string) error
}

func (m *mockGoalService) CreateGoal(userID string, input services.CreateGoalInput) (*models.SavingsGoal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(userID, input)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error) {
	if m.getUserGoalsFn != nil {
		return m.getUserGoalsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.SavingsGoal{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockGoalService) GetGoalByID(userID, goalID string) (*models.SavingsGoal, error) {
	if m.getGoalByIDFn != nil {
		return m.getGoalByIDFn(userID, goalID)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) GetGoalWithProgress(userID, goalID string) (*services.GoalProgress, error) {
	if m.getGoalWithProgressFn != nil {
		return m.getGoalWithProgressFn(userID, goalID)
	}
	return &services.GoalProgress{}, nil
}

func (m *mockGoalService) AddContribution(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error) {
	if m.addContributionFn != nil {
		return m.addContributionFn(userID, goalID, amountBaseMinor)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) RemoveContribution(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error) {
	if m.removeContributionFn != nil {
		return m.removeContributionFn(userID, goalID, amountBaseMinor)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) SyncLinkedGoals(userID string) (int, error) {
	if m.syncLinkedGoalsFn != nil {
		return m.syncLinkedGoalsFn(userID)
	}
	return 0, nil
}

func (m *mockGoalService) GetGoalsNearingDeadline(userID string, days int) ([]services.GoalProgress, error) {
	if m.getGoalsNearingDeadlineFn != nil {
		return m.getGoalsNearingDeadlineFn(userID, days)
	}
	return nil, nil
}

func (m *mockGoalService) GetGoalsSummary(userID string) (*services.GoalsSummary, error) {
	if m.getGoalsSummaryFn != nil {
		return m.getGoalsSummaryFn(userID)
	}
	return &services.GoalsSummary{}, nil
}

func (m *mockGoalService) UpdateGoal(userID, goalID string, name *string, targetBaseMinor *int64, targetDate *time.Time, isActive *bool) (*models.SavingsGoal, error) {
	if m.updateGoalFn != nil {
		return m.updateGoalFn(userID, goalID, name, targetBaseMinor, targetDate, isActive)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) DeleteGoal(userID, goalID string) error {
	if m.deleteGoalFn != nil {
		return m.deleteGoalFn(userID, goalID)
	}
	return nil
}

// verify interface compliance
var _ services.GoalServicer = (*mockGoalService)(nil)

const testGoalID = "01923456-7890-7abc-8def-0123456722aa"

func setupGoalRouter(handler *GoalHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/goals", handler.CreateGoal)
	auth.GET("/goals", handler.GetUserGoals)
	auth.GET("/goals/summary", handler.GetGoalsSummary)
	auth.GET("/goals/deadlines", handler.GetGoalsNearingDeadline)
	auth.POST("/goals/sync", handler.SyncLinkedGoals)
	auth.GET("/goals/:id", handler.GetGoalWithProgress)
	auth.POST("/goals/:id/contribute", handler.AddContribution)
	auth.POST("/goals/:id/withdraw", handler.RemoveContribution)
	auth.DELETE("/goals/:id", handler.DeleteGoal)
	return r
}

func TestGoalHandler_CreateGoal(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		goalSvc := &mockGoalService{
			createGoalFn: func(userID string, input services.CreateGoalInput) (*models.SavingsGoal, error) {
				return &models.SavingsGoal{
					Base:            models.Base{ID: testGoalID},
					UserID:          userID,
					Name:            input.Name,
					TargetBaseMinor: input.TargetBaseMinor,
					IsActive:        true,
				}, nil
			},
		}
		handler := NewGoalHandler(goalSvc)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals",
			`{"name":"Emergency fund","target_base_minor":60000,"target_date":"2026-09-01"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		goal := result["goal"].(map[string]interface{})
		if goal["target_base_minor"].(float64) != 60000 {
			t.Errorf("expected target 60000, got %v", goal["target_base_minor"])
		}
	})

	t.Run("returns 400 on zero target", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals", `{"name":"Empty","target_base_minor":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_Contributions(t *testing.T) {
	t.Run("contribute returns 200", func(t *testing.T) {
		goalSvc := &mockGoalService{
			addContributionFn: func(_, goalID string, amount int64) (*models.SavingsGoal, error) {
				return &models.SavingsGoal{Base: models.Base{ID: goalID}, CurrentBaseMinor: amount}, nil
			},
		}
		handler := NewGoalHandler(goalSvc)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/contribute", `{"amount_base_minor":4000}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		goal := result["goal"].(map[string]interface{})
		if goal["current_base_minor"].(float64) != 4000 {
			t.Errorf("expected current 4000, got %v", goal["current_base_minor"])
		}
	})

	t.Run("withdraw over saved returns 400", func(t *testing.T) {
		goalSvc := &mockGoalService{
			removeContributionFn: func(_, _ string, _ int64) (*models.SavingsGoal, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Withdrawal exceeds saved amount")
			},
		}
		handler := NewGoalHandler(goalSvc)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/withdraw", `{"amount_base_minor":4000}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("negative contribution rejected by binding", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/contribute", `{"amount_base_minor":-100}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_SyncLinkedGoals(t *testing.T) {
	goalSvc := &mockGoalService{
		syncLinkedGoalsFn: func(_ string) (int, error) { return 2, nil },
	}
	handler := NewGoalHandler(goalSvc)
	r := setupGoalRouter(handler)

	rec := doRequest(r, "POST", "/goals/sync", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if result["updated"].(float64) != 2 {
		t.Errorf("expected 2 updated, got %v", result["updated"])
	}
}

func TestGoalHandler_GetGoalsNearingDeadline(t *testing.T) {
	t.Run("passes days through", func(t *testing.T) {
		var captured int
		goalSvc := &mockGoalService{
			getGoalsNearingDeadlineFn: func(_ string, days int) ([]services.GoalProgress, error) {
				captured = days
				return []services.GoalProgress{}, nil
			},
		}
		handler := NewGoalHandler(goalSvc)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "GET", "/goals/deadlines?days=14", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured != 14 {
			t.Errorf("expected 14 days, got %d", captured)
		}
	})

	t.Run("returns 400 on non-positive days", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "GET", "/goals/deadlines?days=-3", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
