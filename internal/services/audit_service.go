package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"centavo/internal/logger"
	"centavo/internal/models"
)

// auditService records mutating actions. Audit writes are best-effort: a
// failed audit entry is logged and dropped, never allowed to fail the
// operation it describes.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an action against a resource.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	var changesJSON string
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit changes",
				"action", action, "resource_type", resourceType, "error", err)
		} else {
			changesJSON = string(raw)
		}
	}

	entry := models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		logger.Get().Errorw("failed to write audit log entry",
			"action", action, "resource_type", resourceType, "error", err)
	}
}
