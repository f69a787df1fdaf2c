package models

// Budget represents a monthly spending plan for a category. Month is stored
// compact ("YYYYMM"); the API exchanges canonical "YYYY-MM" keys. At most one
// active budget may exist per (category, month). Spent amounts are never
// stored: they are recomputed from the transaction log.
type Budget struct {
	Base
	UserID          string `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID      string `gorm:"type:uuid;not null;index" json:"category_id"`
	Month           string `gorm:"size:6;not null;index" json:"month"`
	AmountBaseMinor int64  `gorm:"type:bigint;not null" json:"amount_base_minor"`
	IsActive        bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
