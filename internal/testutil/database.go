// Package testutil provides in-memory database setup, fixtures, and
// assertion helpers for service and handler tests.
package testutil

import (
	"fmt"
	"testing"

	"centavo/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var allModels = []interface{}{
	&models.User{},
	&models.Account{},
	&models.Category{},
	&models.Transaction{},
	&models.Transfer{},
	&models.ExchangeRate{},
	&models.Budget{},
	&models.SavingsGoal{},
	&models.AuditLog{},
}

// SetupTestDB opens a fresh in-memory SQLite database with the full schema
// migrated. The DSN is keyed on the test name so parallel tests never share
// state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// TeardownTestDB closes the underlying connection, releasing the in-memory
// database.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}
