package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome      TransactionType = "income"
	TransactionTypeExpense     TransactionType = "expense"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
)

// SignedDelta returns the balance effect of an amount under this transaction
// type: income and incoming transfers add, expenses and outgoing transfers
// subtract the absolute amount.
func (t TransactionType) SignedDelta(amountMinor int64) int64 {
	switch t {
	case TransactionTypeIncome, TransactionTypeTransferIn:
		return amountMinor
	case TransactionTypeExpense, TransactionTypeTransferOut:
		if amountMinor < 0 {
			return amountMinor
		}
		return -amountMinor
	}
	return 0
}

// IsTransferLeg reports whether the type is one half of a paired transfer.
func (t TransactionType) IsTransferLeg() bool {
	return t == TransactionTypeTransferOut || t == TransactionTypeTransferIn
}

// Transaction represents a single money movement. AmountBaseMinor and
// ExchangeRate are immutable snapshots taken at creation time; later market
// rate changes never alter historical rows.
type Transaction struct {
	Base
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID       string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID      *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Currency        string          `gorm:"not null" json:"currency"`
	AmountMinor     int64           `gorm:"type:bigint;not null" json:"amount_minor"`
	AmountBaseMinor int64           `gorm:"type:bigint;not null" json:"amount_base_minor"`
	ExchangeRate    decimal.Decimal `gorm:"type:numeric(20,10);not null;default:1" json:"exchange_rate"`
	Description     string          `json:"description"`
	Date            time.Time       `gorm:"not null;index" json:"date"`
	TransferID      *string         `gorm:"type:uuid;index" json:"transfer_id,omitempty"`

	// Relationships
	Account  Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
