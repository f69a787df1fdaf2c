package models

import (
	"time"

	"centavo/internal/uuid"

	"gorm.io/gorm"
)

// Base carries the ID and bookkeeping columns shared by every table. IDs are
// UUIDv7 strings assigned on insert, deletes are soft.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns a UUIDv7 unless the caller fixed the ID (tests do).
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
