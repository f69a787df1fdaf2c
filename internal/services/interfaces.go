package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"centavo/internal/models"
	"centavo/internal/pagination"
)

// RateSource indicates how an exchange rate was obtained. A fallback rate of
// 1.0 is a degraded outcome that callers must surface, never silently trust.
type RateSource string

const (
	RateSourceExact    RateSource = "exact"
	RateSourceLatest   RateSource = "latest"
	RateSourceFallback RateSource = "fallback"
	RateSourceManual   RateSource = "manual"
)

// ResolvedRate is the outcome of the rate fallback chain.
type ResolvedRate struct {
	Rate   decimal.Decimal `json:"rate"`
	Source RateSource      `json:"source"`
	Date   string          `json:"date"`
}

// RateInput is one exchange-rate row to ingest.
type RateInput struct {
	BaseCurrency  string
	QuoteCurrency string
	Rate          decimal.Decimal
	Date          string
	Provider      string
}

// RatePoint is one observation in a pair's rate history.
type RatePoint struct {
	Date string          `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

// RateServicer defines the contract for exchange-rate resolution and ingestion.
// Resolution is read-only and deterministic for a given stored state.
type RateServicer interface {
	GetRateWithFallback(base, quote, date string) (*ResolvedRate, error)
	IngestRates(rates []RateInput) (int, error)
	GetRateHistory(base, quote string, days int) ([]RatePoint, error)
	SupportedCurrencies() ([]string, error)
}

// CreateAccountInput holds the fields for account creation.
type CreateAccountInput struct {
	Name                string
	Description         string
	Type                models.AccountType
	Currency            string
	InitialBalanceMinor int64
}

// AccountUpdateFields holds optional account fields to update. Balance is
// deliberately absent: balances move only through AdjustBalance/UpdateBalances.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// BalanceUpdate sets one account's balance in a batched correction.
type BalanceUpdate struct {
	AccountID       string
	NewBalanceMinor int64
}

// AccountServicer defines the contract for account and balance logic. It is
// the single owner of balance mutation; transaction and transfer logic drive
// it and nothing else writes balances.
type AccountServicer interface {
	CreateAccount(userID string, input CreateAccountInput) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeactivateAccount(userID, accountID string) error
	DeleteAccount(userID, accountID string) error
	AdjustBalance(tx *gorm.DB, userID, accountID string, deltaMinor int64) (*models.Account, error)
	UpdateBalances(userID string, updates []BalanceUpdate) ([]models.Account, error)
	VerifyLedger(userID, accountID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate       *time.Time
	ToDate         *time.Time
	Type           *models.TransactionType
	CategoryID     *string
	AccountID      *string
	MinAmountMinor *int64
	MaxAmountMinor *int64
	Search         string
}

// CreateTransactionInput holds the fields for transaction creation.
type CreateTransactionInput struct {
	AccountID   string
	CategoryID  *string
	Type        models.TransactionType
	AmountMinor int64
	Description string
	Date        time.Time
}

// UpdateTransactionInput is a partial patch for an existing transaction.
type UpdateTransactionInput struct {
	CategoryID  *string
	AmountMinor *int64
	Description *string
	Date        *time.Time
}

// CreatedTransaction pairs a stored transaction with the source of the rate
// used for its base-currency snapshot, so callers can warn on fallback rates.
type CreatedTransaction struct {
	Transaction *models.Transaction `json:"transaction"`
	RateSource  RateSource          `json:"rate_source"`
}

// CashFlowGrouping selects the bucketing of cash-flow aggregation.
type CashFlowGrouping string

const (
	GroupByDay   CashFlowGrouping = "day"
	GroupByWeek  CashFlowGrouping = "week"
	GroupByMonth CashFlowGrouping = "month"
)

// CashFlowPoint is one bucket of the cash-flow projection, in base currency
// minor units. Transfer legs are excluded so internal movements never distort
// net flow.
type CashFlowPoint struct {
	Date                string `json:"date"`
	IncomeBaseMinor     int64  `json:"income_base_minor"`
	ExpenseBaseMinor    int64  `json:"expense_base_minor"`
	NetBaseMinor        int64  `json:"net_base_minor"`
	CumulativeBaseMinor int64  `json:"cumulative_base_minor"`
}

// CategoryBreakdownItem is one category's share of spending or income.
type CategoryBreakdownItem struct {
	CategoryID       string  `json:"category_id"`
	CategoryName     string  `json:"category_name"`
	TotalBaseMinor   int64   `json:"total_base_minor"`
	TransactionCount int     `json:"transaction_count"`
	Percentage       float64 `json:"percentage"`
}

// MonthlyReport aggregates one month's activity in base currency minor units.
type MonthlyReport struct {
	Month                 string                  `json:"month"`
	TotalIncomeBaseMinor  int64                   `json:"total_income_base_minor"`
	TotalExpenseBaseMinor int64                   `json:"total_expense_base_minor"`
	NetBaseMinor          int64                   `json:"net_base_minor"`
	TransactionCount      int64                   `json:"transaction_count"`
	CategoryBreakdown     []CategoryBreakdownItem `json:"category_breakdown"`
}

// TransactionServicer defines the contract for the transaction lifecycle and
// its read-only aggregations.
type TransactionServicer interface {
	CreateTransaction(userID string, input CreateTransactionInput) (*CreatedTransaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(userID, transactionID string, patch UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetTotalByCategory(userID, categoryID string, from, to *time.Time) (int64, error)
	GetCategoryBreakdown(userID string, from, to time.Time, txType *models.TransactionType) ([]CategoryBreakdownItem, error)
	GetCashFlowData(userID string, from, to time.Time, groupBy CashFlowGrouping) ([]CashFlowPoint, error)
	GetMonthlyReport(userID, month string) (*MonthlyReport, error)
}

// CreateTransferInput holds the fields for a transfer between two accounts.
// AmountMajor is in the source account's currency; ExchangeRate, when set,
// overrides rate resolution.
type CreateTransferInput struct {
	FromAccountID string
	ToAccountID   string
	AmountMajor   decimal.Decimal
	Description   string
	Date          time.Time
	ExchangeRate  *decimal.Decimal
	FeeMinor      int64
}

// TransferResult returns both created legs and the rate that linked them.
type TransferResult struct {
	TransferID      string              `json:"transfer_id"`
	FromTransaction *models.Transaction `json:"from_transaction"`
	ToTransaction   *models.Transaction `json:"to_transaction"`
	Rate            decimal.Decimal     `json:"rate"`
	RateSource      RateSource          `json:"rate_source"`
}

// TransferServicer defines the contract for atomic paired-transaction
// transfers.
type TransferServicer interface {
	CreateTransfer(userID string, input CreateTransferInput) (*TransferResult, error)
	GetTransferByID(userID, transferID string) (*models.Transfer, error)
	DeleteTransfer(userID, transferID string) error
}

// BudgetProgress augments a budget with spending recomputed from the
// transaction log.
type BudgetProgress struct {
	Budget             models.Budget `json:"budget"`
	Month              string        `json:"month"`
	SpentBaseMinor     int64         `json:"spent_base_minor"`
	RemainingBaseMinor int64         `json:"remaining_base_minor"`
	PercentageUsed     float64       `json:"percentage_used"`
	IsOverBudget       bool          `json:"is_over_budget"`
}

// BudgetMonthSummary aggregates all budgets of one month.
type BudgetMonthSummary struct {
	Month               string `json:"month"`
	TotalBudgetedMinor  int64  `json:"total_budgeted_minor"`
	TotalSpentMinor     int64  `json:"total_spent_minor"`
	TotalRemainingMinor int64  `json:"total_remaining_minor"`
	OverBudgetCount     int    `json:"over_budget_count"`
	BudgetCount         int    `json:"budget_count"`
}

// BudgetServicer defines the contract for budget management and progress.
type BudgetServicer interface {
	CreateBudget(userID, categoryID, month string, amountBaseMinor int64) (*models.Budget, error)
	GetUserBudgets(userID, month string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	GetBudgetWithProgress(userID, budgetID string) (*BudgetProgress, error)
	GetBudgetsWithProgress(userID, month string) ([]BudgetProgress, error)
	GetMonthSummary(userID, month string) (*BudgetMonthSummary, error)
	GetBudgetAlerts(userID, month string, thresholdPct float64) ([]BudgetProgress, error)
	CopyBudgets(userID, fromMonth, toMonth string) ([]models.Budget, error)
	UpdateBudget(userID, budgetID string, amountBaseMinor *int64, isActive *bool) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
}

// CreateGoalInput holds the fields for goal creation. AccountID links the
// goal to an account whose balance it mirrors; linked goals reject manual
// contributions.
type CreateGoalInput struct {
	Name            string
	Description     string
	TargetBaseMinor int64
	TargetDate      *time.Time
	AccountID       *string
}

// GoalProgress augments a goal with derived progress figures.
type GoalProgress struct {
	Goal                         models.SavingsGoal `json:"goal"`
	ProgressPercentage           float64            `json:"progress_percentage"`
	RemainingBaseMinor           int64              `json:"remaining_base_minor"`
	DaysRemaining                *int               `json:"days_remaining,omitempty"`
	IsOnTrack                    *bool              `json:"is_on_track,omitempty"`
	SuggestedMonthlyContribMinor *int64             `json:"suggested_monthly_contribution_minor,omitempty"`
}

// GoalsSummary aggregates all active goals.
type GoalsSummary struct {
	TotalGoals          int     `json:"total_goals"`
	ActiveGoals         int     `json:"active_goals"`
	CompletedGoals      int     `json:"completed_goals"`
	TotalTargetBaseMinor int64  `json:"total_target_base_minor"`
	TotalSavedBaseMinor  int64  `json:"total_saved_base_minor"`
	AverageProgress      float64 `json:"average_progress"`
}

// GoalServicer defines the contract for savings goals.
type GoalServicer interface {
	CreateGoal(userID string, input CreateGoalInput) (*models.SavingsGoal, error)
	GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error)
	GetGoalByID(userID, goalID string) (*models.SavingsGoal, error)
	GetGoalWithProgress(userID, goalID string) (*GoalProgress, error)
	AddContribution(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error)
	RemoveContribution(userID, goalID string, amountBaseMinor int64) (*models.SavingsGoal, error)
	SyncLinkedGoals(userID string) (int, error)
	GetGoalsNearingDeadline(userID string, days int) ([]GoalProgress, error)
	GetGoalsSummary(userID string) (*GoalsSummary, error)
	UpdateGoal(userID, goalID string, name *string, targetBaseMinor *int64, targetDate *time.Time, isActive *bool) (*models.SavingsGoal, error)
	DeleteGoal(userID, goalID string) error
}

// CategoryServicer defines the contract for category management.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName, baseCurrency string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
