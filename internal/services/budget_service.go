package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/pagination"
	"centavo/internal/period"
)

// budgetService handles monthly category budgets. Spending against a budget is
// always recomputed from the transaction log at read time, so budget figures
// can never drift from the ledger.
type budgetService struct {
	db                 *gorm.DB
	transactionService TransactionServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, transactionService TransactionServicer) BudgetServicer {
	return &budgetService{db: db, transactionService: transactionService}
}

// CreateBudget creates a budget for a category and month. At most one active
// budget may exist per (category, month).
func (s *budgetService) CreateBudget(userID, categoryID, month string, amountBaseMinor int64) (*models.Budget, error) {
	if amountBaseMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
	}

	compact, err := compactMonth(month)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budgets apply to expense categories")
	}

	var budget models.Budget
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Budget{}).
			Where("user_id = ? AND category_id = ? AND month = ? AND is_active = ?", userID, categoryID, compact, true).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateBudgetPeriod
		}

		budget = models.Budget{
			UserID:          userID,
			CategoryID:      categoryID,
			Month:           compact,
			AmountBaseMinor: amountBaseMinor,
			IsActive:        true,
		}
		if err := tx.Create(&budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// GetUserBudgets retrieves a paginated list of a user's budgets, optionally
// filtered to one month.
func (s *budgetService) GetUserBudgets(userID, month string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if month != "" {
		compact, err := compactMonth(month)
		if err != nil {
			return nil, err
		}
		base = base.Where("month = ?", compact)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").
		Scopes(pagination.Paginate(page)).
		Order("month DESC, created_at ASC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID retrieves a budget by ID for a specific user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", budgetID, userID).
		First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudgetWithProgress retrieves a budget along with spending recomputed from
// the month's expense transactions.
func (s *budgetService) GetBudgetWithProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}
	return s.progress(userID, budget)
}

// GetBudgetsWithProgress computes progress for every active budget of a month.
func (s *budgetService) GetBudgetsWithProgress(userID, month string) ([]BudgetProgress, error) {
	compact, err := compactMonth(month)
	if err != nil {
		return nil, err
	}

	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("user_id = ? AND month = ? AND is_active = ?", userID, compact, true).
		Order("created_at ASC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	progresses := make([]BudgetProgress, 0, len(budgets))
	for i := range budgets {
		p, err := s.progress(userID, &budgets[i])
		if err != nil {
			return nil, err
		}
		progresses = append(progresses, *p)
	}
	return progresses, nil
}

func (s *budgetService) progress(userID string, budget *models.Budget) (*BudgetProgress, error) {
	canonical, err := period.Expand(budget.Month)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	start, end, err := period.Bounds(canonical)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spent, err := s.transactionService.GetTotalByCategory(userID, budget.CategoryID, &start, &end)
	if err != nil {
		return nil, err
	}

	p := &BudgetProgress{
		Budget:             *budget,
		Month:              canonical,
		SpentBaseMinor:     spent,
		RemainingBaseMinor: budget.AmountBaseMinor - spent,
		IsOverBudget:       spent > budget.AmountBaseMinor,
	}
	if budget.AmountBaseMinor > 0 {
		p.PercentageUsed = float64(spent) / float64(budget.AmountBaseMinor) * 100
	}
	return p, nil
}

// GetMonthSummary aggregates every active budget of one month.
func (s *budgetService) GetMonthSummary(userID, month string) (*BudgetMonthSummary, error) {
	progresses, err := s.GetBudgetsWithProgress(userID, month)
	if err != nil {
		return nil, err
	}
	normalized, _ := period.Normalize(month)

	summary := &BudgetMonthSummary{Month: normalized, BudgetCount: len(progresses)}
	for _, p := range progresses {
		summary.TotalBudgetedMinor += p.Budget.AmountBaseMinor
		summary.TotalSpentMinor += p.SpentBaseMinor
		if p.IsOverBudget {
			summary.OverBudgetCount++
		}
	}
	summary.TotalRemainingMinor = summary.TotalBudgetedMinor - summary.TotalSpentMinor
	return summary, nil
}

// GetBudgetAlerts returns the month's budgets whose usage reached the
// threshold percentage.
func (s *budgetService) GetBudgetAlerts(userID, month string, thresholdPct float64) ([]BudgetProgress, error) {
	if thresholdPct <= 0 {
		thresholdPct = 80
	}

	progresses, err := s.GetBudgetsWithProgress(userID, month)
	if err != nil {
		return nil, err
	}

	alerts := make([]BudgetProgress, 0)
	for _, p := range progresses {
		if p.PercentageUsed >= thresholdPct {
			alerts = append(alerts, p)
		}
	}
	return alerts, nil
}

// CopyBudgets copies active budgets from one month into another, skipping
// categories that already have an active budget in the target month.
func (s *budgetService) CopyBudgets(userID, fromMonth, toMonth string) ([]models.Budget, error) {
	fromCompact, err := compactMonth(fromMonth)
	if err != nil {
		return nil, err
	}
	toCompact, err := compactMonth(toMonth)
	if err != nil {
		return nil, err
	}
	if fromCompact == toCompact {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source and target month must differ")
	}

	var copied []models.Budget
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var source []models.Budget
		if err := tx.Where("user_id = ? AND month = ? AND is_active = ?", userID, fromCompact, true).
			Find(&source).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, b := range source {
			var count int64
			if err := tx.Model(&models.Budget{}).
				Where("user_id = ? AND category_id = ? AND month = ? AND is_active = ?", userID, b.CategoryID, toCompact, true).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				continue
			}

			budget := models.Budget{
				UserID:          userID,
				CategoryID:      b.CategoryID,
				Month:           toCompact,
				AmountBaseMinor: b.AmountBaseMinor,
				IsActive:        true,
			}
			if err := tx.Create(&budget).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			copied = append(copied, budget)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copied, nil
}

// UpdateBudget patches a budget's amount or active flag.
func (s *budgetService) UpdateBudget(userID, budgetID string, amountBaseMinor *int64, isActive *bool) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if amountBaseMinor != nil {
		if *amountBaseMinor <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
		}
		updates["amount_base_minor"] = *amountBaseMinor
		budget.AmountBaseMinor = *amountBaseMinor
	}
	if isActive != nil {
		// Reactivating must not violate the one-active-budget rule.
		if *isActive && !budget.IsActive {
			var count int64
			if err := s.db.Model(&models.Budget{}).
				Where("user_id = ? AND category_id = ? AND month = ? AND is_active = ? AND id <> ?",
					userID, budget.CategoryID, budget.Month, true, budget.ID).
				Count(&count).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateBudgetPeriod
			}
		}
		updates["is_active"] = *isActive
		budget.IsActive = *isActive
	}
	if len(updates) == 0 {
		return budget, nil
	}

	if err := s.db.Model(&models.Budget{}).Where("id = ?", budget.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// DeleteBudget removes a budget. Transactions are untouched; budgets are pure
// plans over the ledger.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func compactMonth(month string) (string, error) {
	normalized, err := period.Normalize(month)
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be YYYY-MM")
	}
	compact, err := period.Compact(normalized)
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be YYYY-MM")
	}
	return compact, nil
}
