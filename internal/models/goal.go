package models

import "time"

// SavingsGoal represents a savings target in the user's base currency.
// CurrentBaseMinor is fed either by manual contributions or by mirroring the
// linked account's balance, never both: a goal with AccountID set rejects
// manual contributions.
type SavingsGoal struct {
	Base
	UserID           string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Name             string     `gorm:"not null" json:"name"`
	Description      string     `json:"description"`
	TargetBaseMinor  int64      `gorm:"type:bigint;not null" json:"target_base_minor"`
	CurrentBaseMinor int64      `gorm:"type:bigint;not null;default:0" json:"current_base_minor"`
	TargetDate       *time.Time `json:"target_date,omitempty"`
	AccountID        *string    `gorm:"type:uuid" json:"account_id,omitempty"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`

	// Relationships
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
