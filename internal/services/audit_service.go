package services

import (
	"payment-webhook-api/internal/models"
	"payment-webhook-api/pkg/logging"

	"gorm.io/gorm"
)

// AuditService persists a webhook_event row for every processed request.
// With no database configured the service is nil and recording no-ops; the
// HTTP contract never depends on the audit trail.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service. A nil db yields a disabled
// (nil) service.
func NewAuditService(db *gorm.DB) *AuditService {
	if db == nil {
		return nil
	}
	return &AuditService{db: db}
}

// Record writes one audit row. Failures are logged and swallowed.
func (a *AuditService) Record(event models.WebhookEvent) {
	if a == nil {
		return
	}

	if err := a.db.Create(&event).Error; err != nil {
		logging.Errorf("Failed to write webhook audit row - phone: %s, error: %v", event.PhoneNumber, err)
	}
}
