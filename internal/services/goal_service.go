package services

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/money"
	"centavo/internal/pagination"
)

// avgDaysPerMonth converts day spans into month fractions for pacing math.
const avgDaysPerMonth = 30.44

// goalService handles savings goals. A goal is either fed by manual
// contributions or mirrors a linked account's balance; the two modes never
// mix.
type goalService struct {
	db          *gorm.DB
	rateService RateServicer
	now         func() time.Time
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, rateService RateServicer) GoalServicer {
	return &goalService{db: db, rateService: rateService, now: time.Now}
}

// CreateGoal creates a savings goal. A linked account must exist and belong
// to the user; the goal then tracks that account's balance.
func (s *goalService) CreateGoal(userID string, input CreateGoalInput) (*models.SavingsGoal, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if input.TargetBaseMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}
	if input.TargetDate != nil && input.TargetDate.Before(s.now()) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target date must be in the future")
	}

	goal := &models.SavingsGoal{
		UserID:          userID,
		Name:            input.Name,
		Description:     input.Description,
		TargetBaseMinor: input.TargetBaseMinor,
		TargetDate:      input.TargetDate,
		AccountID:       input.AccountID,
		IsActive:        true,
	}

	if input.AccountID != nil {
		var account models.Account
		if err := s.db.Where("id = ? AND user_id = ?", *input.AccountID, userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrAccountNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		current, err := s.accountBalanceInBase(userID, &account)
		if err != nil {
			return nil, err
		}
		goal.CurrentBaseMinor = current
	}

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals retrieves a paginated list of a user's goals.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error) {
	page.Defaults()

	base := s.db.Model(&models.SavingsGoal{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.SavingsGoal
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGoalByID retrieves a goal by ID for a specific user.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.SavingsGoal, error) {
	var goal models.SavingsGoal
	if err := s.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// GetGoalWithProgress retrieves a goal along with derived progress figures.
func (s *goalService) GetGoalWithProgress(userID, goalID string) (*GoalProgress, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	progress := s.progress(goal)
	return &progress, nil
}

// progress derives percentage, pacing and contribution suggestions for a
// goal. Progress is capped at 100 even when savings exceed the target.
func (s *goalService) progress(goal *models.SavingsGoal) GoalProgress {
	p := GoalProgress{Goal: *goal}

	if goal.TargetBaseMinor > 0 {
		pct := float64(goal.CurrentBaseMinor) / float64(goal.TargetBaseMinor) * 100
		p.ProgressPercentage = math.Min(pct, 100)
	}
	if remaining := goal.TargetBaseMinor - goal.CurrentBaseMinor; remaining > 0 {
		p.RemainingBaseMinor = remaining
	}

	if goal.TargetDate == nil {
		return p
	}

	now := s.now()
	days := int(math.Ceil(goal.TargetDate.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	p.DaysRemaining = &days

	if days == 0 {
		reached := goal.CurrentBaseMinor >= goal.TargetBaseMinor
		p.IsOnTrack = &reached
		return p
	}

	monthsRemaining := float64(days) / avgDaysPerMonth
	required := int64(math.Ceil(float64(p.RemainingBaseMinor) / monthsRemaining))
	p.SuggestedMonthlyContribMinor = &required

	// Compare the pace so far with the pace still required.
	monthsElapsed := now.Sub(goal.CreatedAt).Hours() / 24 / avgDaysPerMonth
	if monthsElapsed < 1 {
		monthsElapsed = 1
	}
	realized := float64(goal.CurrentBaseMinor) / monthsElapsed
	onTrack := realized >= float64(required)
	p.IsOnTrack = &onTrack
	return p
}

// AddContribution adds to a goal's saved amount. Goals linked to an account
// reject manual contributions; their amount only moves with the account.
func (s *goalService) AddContribution(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error) {
	if amountBaseMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "contribution must be greater than zero")
	}

	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.AccountID != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal is linked to an account and cannot take manual contributions")
	}
	if !goal.IsActive {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal is not active")
	}

	result := s.db.Model(&models.SavingsGoal{}).
		Where("id = ? AND user_id = ?", goalID, userID).
		UpdateColumn("current_base_minor", gorm.Expr("current_base_minor + ?", amountBaseMinor))
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	goal.CurrentBaseMinor += amountBaseMinor
	return goal, nil
}

// RemoveContribution withdraws from a goal's saved amount.
func (s *goalService) RemoveContribution(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error) {
	if amountBaseMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "withdrawal must be greater than zero")
	}

	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.AccountID != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal is linked to an account and cannot take manual withdrawals")
	}
	if amountBaseMinor > goal.CurrentBaseMinor {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "withdrawal exceeds saved amount")
	}

	result := s.db.Model(&models.SavingsGoal{}).
		Where("id = ? AND user_id = ?", goalID, userID).
		UpdateColumn("current_base_minor", gorm.Expr("current_base_minor - ?", amountBaseMinor))
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	goal.CurrentBaseMinor -= amountBaseMinor
	return goal, nil
}

// SyncLinkedGoals refreshes every active linked goal from its account's
// current balance, converted into the user's base currency. Returns the
// number of goals updated.
func (s *goalService) SyncLinkedGoals(userID string) (int, error) {
	var goals []models.SavingsGoal
	if err := s.db.Preload("Account").
		Where("user_id = ? AND account_id IS NOT NULL AND is_active = ?", userID, true).
		Find(&goals).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updated := 0
	for i := range goals {
		goal := &goals[i]
		if goal.Account == nil {
			continue
		}
		current, err := s.accountBalanceInBase(userID, goal.Account)
		if err != nil {
			return updated, err
		}
		if current == goal.CurrentBaseMinor {
			continue
		}
		if err := s.db.Model(&models.SavingsGoal{}).
			Where("id = ?", goal.ID).
			UpdateColumn("current_base_minor", current).Error; err != nil {
			return updated, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updated++
	}
	return updated, nil
}

// accountBalanceInBase converts an account balance into the user's base
// currency at the current resolvable rate.
func (s *goalService) accountBalanceInBase(userID string, account *models.Account) (int64, error) {
	var user models.User
	if err := s.db.Select("base_currency").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resolved, err := s.rateService.GetRateWithFallback(account.Currency, user.BaseCurrency, "")
	if err != nil {
		return 0, err
	}
	return money.ConvertMinor(account.BalanceMinor, account.Currency, user.BaseCurrency, resolved.Rate), nil
}

// GetGoalsNearingDeadline returns active unreached goals whose target date
// falls within the next given days.
func (s *goalService) GetGoalsNearingDeadline(userID string, days int) ([]GoalProgress, error) {
	if days <= 0 {
		days = 30
	}

	now := s.now()
	cutoff := now.AddDate(0, 0, days)

	var goals []models.SavingsGoal
	if err := s.db.Where("user_id = ? AND is_active = ? AND target_date IS NOT NULL AND target_date >= ? AND target_date <= ?",
		userID, true, now, cutoff).
		Where("current_base_minor < target_base_minor").
		Order("target_date ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	progresses := make([]GoalProgress, 0, len(goals))
	for i := range goals {
		progresses = append(progresses, s.progress(&goals[i]))
	}
	return progresses, nil
}

// GetGoalsSummary aggregates all of a user's goals.
func (s *goalService) GetGoalsSummary(userID string) (*GoalsSummary, error) {
	var goals []models.SavingsGoal
	if err := s.db.Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &GoalsSummary{TotalGoals: len(goals)}
	var pctSum float64
	for i := range goals {
		g := &goals[i]
		if g.IsActive {
			summary.ActiveGoals++
		}
		if g.CurrentBaseMinor >= g.TargetBaseMinor {
			summary.CompletedGoals++
		}
		summary.TotalTargetBaseMinor += g.TargetBaseMinor
		summary.TotalSavedBaseMinor += g.CurrentBaseMinor
		pctSum += s.progress(g).ProgressPercentage
	}
	if len(goals) > 0 {
		summary.AverageProgress = pctSum / float64(len(goals))
	}
	return summary, nil
}

// UpdateGoal patches a goal's descriptive and target fields.
func (s *goalService) UpdateGoal(userID, goalID string, name *string, targetBaseMinor *int64, targetDate *time.Time, isActive *bool) (*models.SavingsGoal, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		if *name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name cannot be empty")
		}
		updates["name"] = *name
		goal.Name = *name
	}
	if targetBaseMinor != nil {
		if *targetBaseMinor <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
		}
		updates["target_base_minor"] = *targetBaseMinor
		goal.TargetBaseMinor = *targetBaseMinor
	}
	if targetDate != nil {
		updates["target_date"] = *targetDate
		goal.TargetDate = targetDate
	}
	if isActive != nil {
		updates["is_active"] = *isActive
		goal.IsActive = *isActive
	}
	if len(updates) == 0 {
		return goal, nil
	}

	if err := s.db.Model(&models.SavingsGoal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// DeleteGoal removes a goal. Account balances are untouched; goals only
// observe the ledger.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
