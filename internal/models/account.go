package models

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeBank       AccountType = "bank"
	AccountTypeCard       AccountType = "card"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeSavings    AccountType = "savings"
)

// Account represents a financial account. BalanceMinor is kept in lockstep
// with the signed sum of all non-deleted transactions referencing the account;
// it is only ever mutated through the account service, never written directly.
type Account struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string      `gorm:"not null" json:"name"`
	Type         AccountType `gorm:"not null" json:"type"`
	Description  string      `json:"description"`
	Currency     string      `gorm:"not null;default:'USD'" json:"currency"`
	BalanceMinor int64       `gorm:"type:bigint;not null;default:0" json:"balance_minor"`
	// InitialBalanceMinor anchors the ledger invariant: balance must always
	// equal initial balance plus the signed sum of the account's transactions.
	InitialBalanceMinor int64 `gorm:"type:bigint;not null;default:0" json:"initial_balance_minor"`
	IsActive     bool        `gorm:"default:true" json:"is_active"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}
