package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"centavo/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password, USD base currency and
// a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		Password:     string(hash),
		BaseCurrency: "USD",
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a cash account with zero balance in USD.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, "USD", 0)
}

// CreateTestAccountWithBalance creates a cash account with the given currency
// and balance in minor units.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID, currency string, balanceMinor int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:              userID,
		Name:                fmt.Sprintf("Test Account %d", nextID()),
		Type:                models.AccountTypeCash,
		Currency:            currency,
		BalanceMinor:        balanceMinor,
		InitialBalanceMinor: balanceMinor,
		IsActive:            true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCardAccount creates a card account, which may carry a negative
// balance under the default overdraft policy.
func CreateTestCardAccount(t *testing.T, db *gorm.DB, userID string, balanceMinor int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:              userID,
		Name:                fmt.Sprintf("Test Card %d", nextID()),
		Type:                models.AccountTypeCard,
		Currency:            "USD",
		BalanceMinor:        balanceMinor,
		InitialBalanceMinor: balanceMinor,
		IsActive:            true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test card account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount in
// minor units, with a 1:1 base snapshot in USD.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amountMinor int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:          userID,
		AccountID:       accountID,
		Type:            txType,
		Currency:        "USD",
		AmountMinor:     amountMinor,
		AmountBaseMinor: amountMinor,
		ExchangeRate:    decimal.NewFromInt(1),
		Date:            time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRate stores an exchange rate row for the given pair and date.
func CreateTestRate(t *testing.T, db *gorm.DB, base, quote string, rate float64, date string) *models.ExchangeRate {
	t.Helper()

	row := &models.ExchangeRate{
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          decimal.NewFromFloat(rate),
		Date:          date,
		Provider:      "test",
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create test rate: %v", err)
	}
	return row
}

// CreateTestBudget creates an active budget for the given category and
// compact month ("YYYYMM"), with the amount in base-currency minor units.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID, month string, amountBaseMinor int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:          userID,
		CategoryID:      categoryID,
		Month:           month,
		AmountBaseMinor: amountBaseMinor,
		IsActive:        true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates an active unlinked goal with the given target in
// base-currency minor units.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, targetBaseMinor int64) *models.SavingsGoal {
	t.Helper()

	goal := &models.SavingsGoal{
		UserID:          userID,
		Name:            fmt.Sprintf("Test Goal %d", nextID()),
		TargetBaseMinor: targetBaseMinor,
		IsActive:        true,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}
