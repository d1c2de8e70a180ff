package models

import (
	"time"
)

// WebhookEvent is the audit row written for every processed webhook POST.
type WebhookEvent struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	PhoneNumber   string    `gorm:"index" json:"phone_number"`
	Amount        float64   `json:"amount"`
	TransactionID string    `gorm:"index" json:"transaction_id"`
	Status        string    `json:"status"`
	Forwarded     bool      `json:"forwarded"`
	StatusCode    int       `json:"status_code"`
	Outcome       string    `json:"outcome"` // e.g. acknowledged, forwarded, forward_failed, config_missing
	CreatedAt     time.Time `json:"created_at"`
}

// TableName sets the table name
func (WebhookEvent) TableName() string {
	return "webhook_event"
}
