package models

// User represents an application user. The base currency is the user's
// reporting currency: every transaction stores a snapshot of its amount
// converted into it at creation time.
type User struct {
	Base
	Email            string `gorm:"uniqueIndex;not null" json:"email"`
	Password         string `gorm:"not null" json:"-"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	BaseCurrency     string `gorm:"not null;default:'USD'" json:"base_currency"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string `json:"-"`
}
