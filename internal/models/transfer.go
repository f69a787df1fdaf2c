package models

// Transfer links the two legs of a paired transfer. Both legs are created
// together with the link record or not at all; an orphan leg is a ledger
// corruption.
type Transfer struct {
	Base
	UserID            string `gorm:"type:uuid;not null;index" json:"user_id"`
	FromTransactionID string `gorm:"type:uuid;not null" json:"from_transaction_id"`
	ToTransactionID   string `gorm:"type:uuid;not null" json:"to_transaction_id"`
	FeeMinor          int64  `gorm:"type:bigint;not null;default:0" json:"fee_minor"`

	// Relationships
	FromTransaction Transaction `gorm:"foreignKey:FromTransactionID" json:"from_transaction,omitempty"`
	ToTransaction   Transaction `gorm:"foreignKey:ToTransactionID" json:"to_transaction,omitempty"`
}
