package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/money"
	"centavo/internal/pagination"
	"centavo/internal/period"
)

// transactionService handles the transaction lifecycle. Every mutation pairs
// the row change with the matching balance adjustment inside one database
// transaction, and every stored row carries an immutable base-currency
// snapshot taken at creation time.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
	rateService    RateServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer, rateService RateServicer) TransactionServicer {
	return &transactionService{
		db:             db,
		accountService: accountService,
		rateService:    rateService,
	}
}

// CreateTransaction creates an income or expense transaction and applies its
// signed effect to the account balance. Transfer legs are not created here;
// they only exist through the transfer service.
func (s *transactionService) CreateTransaction(userID string, input CreateTransactionInput) (*CreatedTransaction, error) {
	if input.AmountMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.AccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	if input.Type.IsTransferLeg() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "transfer legs are created through transfers")
	}
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}

	account, err := s.accountService.GetAccountByID(userID, input.AccountID)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil {
		if err := s.verifyCategory(userID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	baseCurrency, err := s.userBaseCurrency(userID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.rateService.GetRateWithFallback(account.Currency, baseCurrency, date.UTC().Format(rateDateLayout))
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:          userID,
		AccountID:       account.ID,
		CategoryID:      input.CategoryID,
		Type:            input.Type,
		Currency:        account.Currency,
		AmountMinor:     input.AmountMinor,
		AmountBaseMinor: money.ConvertMinor(input.AmountMinor, account.Currency, baseCurrency, resolved.Rate),
		ExchangeRate:    resolved.Rate,
		Description:     input.Description,
		Date:            date,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		_, err := s.accountService.AdjustBalance(tx, userID, account.ID, input.Type.SignedDelta(input.AmountMinor))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &CreatedTransaction{Transaction: transaction, RateSource: resolved.Source}, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of a user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.MinAmountMinor != nil {
		q = q.Where("amount_minor >= ?", *f.MinAmountMinor)
	}
	if f.MaxAmountMinor != nil {
		q = q.Where("amount_minor <= ?", *f.MaxAmountMinor)
	}
	if f.Search != "" {
		q = q.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	return q
}

// UpdateTransaction patches a transaction and reconciles the account balance
// by reverting the old effect and applying the new one. The stored exchange
// rate snapshot is preserved: changing the amount re-derives the base amount
// at the original rate, and an update that changes nothing is a no-op on the
// balance.
func (s *transactionService) UpdateTransaction(userID, transactionID string, patch UpdateTransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.Type.IsTransferLeg() {
		return nil, apperrors.ErrTransactionNotEditable
	}

	if patch.CategoryID != nil && *patch.CategoryID != "" {
		if err := s.verifyCategory(userID, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	newAmount := transaction.AmountMinor
	if patch.AmountMinor != nil {
		if *patch.AmountMinor <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		newAmount = *patch.AmountMinor
	}

	baseCurrency, err := s.userBaseCurrency(userID)
	if err != nil {
		return nil, err
	}

	oldDelta := transaction.Type.SignedDelta(transaction.AmountMinor)
	newDelta := transaction.Type.SignedDelta(newAmount)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountService.AdjustBalance(tx, userID, transaction.AccountID, -oldDelta); err != nil {
			return err
		}
		if _, err := s.accountService.AdjustBalance(tx, userID, transaction.AccountID, newDelta); err != nil {
			return err
		}

		transaction.AmountMinor = newAmount
		transaction.AmountBaseMinor = money.ConvertMinor(newAmount, transaction.Currency, baseCurrency, transaction.ExchangeRate)
		if patch.CategoryID != nil {
			if *patch.CategoryID == "" {
				transaction.CategoryID = nil
			} else {
				transaction.CategoryID = patch.CategoryID
			}
		}
		if patch.Description != nil {
			transaction.Description = *patch.Description
		}
		if patch.Date != nil && !patch.Date.IsZero() {
			transaction.Date = *patch.Date
		}

		if err := tx.Save(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// DeleteTransaction removes a transaction and reverts its balance effect.
// Transfer legs cannot be deleted individually; delete the transfer instead.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	if transaction.Type.IsTransferLeg() {
		return apperrors.ErrTransactionNotEditable
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		delta := transaction.Type.SignedDelta(transaction.AmountMinor)
		_, err := s.accountService.AdjustBalance(tx, userID, transaction.AccountID, -delta)
		return err
	})
}

// GetTotalByCategory sums expense spending for a category in base-currency
// minor units, optionally bounded by a date window.
func (s *transactionService) GetTotalByCategory(userID, categoryID string, from, to *time.Time) (int64, error) {
	q := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND category_id = ? AND type = ?", userID, categoryID, models.TransactionTypeExpense)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date <= ?", *to)
	}

	var total int64
	if err := q.Select("COALESCE(SUM(amount_base_minor), 0)").Scan(&total).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return total, nil
}

// GetCategoryBreakdown aggregates base-currency totals per category for the
// window. Defaults to expenses; pass a type to break down income instead.
func (s *transactionService) GetCategoryBreakdown(userID string, from, to time.Time, txType *models.TransactionType) ([]CategoryBreakdownItem, error) {
	breakdownType := models.TransactionTypeExpense
	if txType != nil {
		breakdownType = *txType
	}
	if breakdownType.IsTransferLeg() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "breakdown only applies to income and expenses")
	}

	type row struct {
		CategoryID       string
		CategoryName     string
		TotalBaseMinor   int64
		TransactionCount int
	}
	var rows []row
	err := s.db.Model(&models.Transaction{}).
		Select("transactions.category_id, categories.name AS category_name, COALESCE(SUM(transactions.amount_base_minor), 0) AS total_base_minor, COUNT(transactions.id) AS transaction_count").
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ? AND transactions.date >= ? AND transactions.date <= ?",
			userID, breakdownType, from, to).
		Where("transactions.category_id IS NOT NULL").
		Group("transactions.category_id, categories.name").
		Order("total_base_minor DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var grand int64
	for _, r := range rows {
		grand += r.TotalBaseMinor
	}

	items := make([]CategoryBreakdownItem, 0, len(rows))
	for _, r := range rows {
		item := CategoryBreakdownItem{
			CategoryID:       r.CategoryID,
			CategoryName:     r.CategoryName,
			TotalBaseMinor:   r.TotalBaseMinor,
			TransactionCount: r.TransactionCount,
		}
		if grand != 0 {
			item.Percentage = float64(r.TotalBaseMinor) / float64(grand) * 100
		}
		items = append(items, item)
	}
	return items, nil
}

// GetCashFlowData buckets income and expenses over the window. Transfer legs
// are excluded entirely: money moving between the user's own accounts is not
// cash flow.
func (s *transactionService) GetCashFlowData(userID string, from, to time.Time, groupBy CashFlowGrouping) ([]CashFlowPoint, error) {
	switch groupBy {
	case GroupByDay, GroupByWeek, GroupByMonth:
	case "":
		groupBy = GroupByMonth
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group_by must be day, week or month")
	}

	var transactions []models.Transaction
	err := s.db.Where("user_id = ? AND type IN ? AND date >= ? AND date <= ?",
		userID,
		[]models.TransactionType{models.TransactionTypeIncome, models.TransactionTypeExpense},
		from, to).
		Order("date ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	buckets := make(map[string]*CashFlowPoint)
	for _, t := range transactions {
		key := bucketKey(t.Date, groupBy)
		point, ok := buckets[key]
		if !ok {
			point = &CashFlowPoint{Date: key}
			buckets[key] = point
		}
		if t.Type == models.TransactionTypeIncome {
			point.IncomeBaseMinor += t.AmountBaseMinor
		} else {
			point.ExpenseBaseMinor += t.AmountBaseMinor
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]CashFlowPoint, 0, len(keys))
	var cumulative int64
	for _, k := range keys {
		p := buckets[k]
		p.NetBaseMinor = p.IncomeBaseMinor - p.ExpenseBaseMinor
		cumulative += p.NetBaseMinor
		p.CumulativeBaseMinor = cumulative
		points = append(points, *p)
	}
	return points, nil
}

func bucketKey(t time.Time, groupBy CashFlowGrouping) string {
	switch groupBy {
	case GroupByDay:
		return t.Format("2006-01-02")
	case GroupByWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}

// GetMonthlyReport aggregates one month's income, expenses and category
// breakdown in base currency.
func (s *transactionService) GetMonthlyReport(userID, month string) (*MonthlyReport, error) {
	start, end, err := period.Bounds(month)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be YYYY-MM")
	}
	normalized, _ := period.Normalize(month)

	type totals struct {
		Income  int64
		Expense int64
		Count   int64
	}
	var t totals
	err = s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount_base_minor ELSE 0 END), 0) AS income, "+
			"COALESCE(SUM(CASE WHEN type = ? THEN amount_base_minor ELSE 0 END), 0) AS expense, "+
			"COUNT(id) AS count",
			models.TransactionTypeIncome, models.TransactionTypeExpense).
		Where("user_id = ? AND type IN ? AND date >= ? AND date <= ?",
			userID,
			[]models.TransactionType{models.TransactionTypeIncome, models.TransactionTypeExpense},
			start, end).
		Scan(&t).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	breakdown, err := s.GetCategoryBreakdown(userID, start, end, nil)
	if err != nil {
		return nil, err
	}

	return &MonthlyReport{
		Month:                 normalized,
		TotalIncomeBaseMinor:  t.Income,
		TotalExpenseBaseMinor: t.Expense,
		NetBaseMinor:          t.Income - t.Expense,
		TransactionCount:      t.Count,
		CategoryBreakdown:     breakdown,
	}, nil
}

func (s *transactionService) verifyCategory(userID, categoryID string) error {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *transactionService) userBaseCurrency(userID string) (string, error) {
	var user models.User
	if err := s.db.Select("base_currency").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user.BaseCurrency, nil
}
