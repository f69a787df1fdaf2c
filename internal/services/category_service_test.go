package services

import (
	"testing"

	"centavo/internal/models"
	"centavo/internal/pagination"
	"centavo/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	t.Run("creates_expense_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		category, err := svc.CreateCategory(user.ID, "Groceries", models.CategoryTypeExpense, "Food shopping", "cart", "#00ff00")
		testutil.AssertNoError(t, err)
		if category.ID == "" {
			t.Fatal("expected non-empty category ID")
		}
		if category.Type != models.CategoryTypeExpense {
			t.Errorf("expected expense type, got %s", category.Type)
		}
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "Weird", "savings", "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "", models.CategoryTypeExpense, "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("deletes_unused_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(user.ID, category.ID))
		_, err := svc.GetCategoryByID(user.ID, category.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("refuses_category_with_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 100)
		db.Model(tx).Update("category_id", category.ID)

		err := svc.DeleteCategory(user.ID, category.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})

	t.Run("refuses_category_with_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, category.ID, "202603", 10000)

		err := svc.DeleteCategory(user.ID, category.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})
}

func TestGetUserCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
	testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)

	page, err := svc.GetUserCategories(user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 2 {
		t.Errorf("expected 2 categories, got %d", page.TotalItems)
	}
}
