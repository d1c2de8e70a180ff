package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-webhook-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// DeliveryStatus is the last recorded outcome for a transaction id.
type DeliveryStatus struct {
	TransactionID string    `json:"transaction_id"`
	PhoneNumber   string    `json:"phone_number"`
	Forwarded     bool      `json:"forwarded"`
	StatusCode    int       `json:"status_code"`
	Outcome       string    `json:"outcome"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// DeliveryStatusService keeps the latest webhook outcome per transaction id
// in Redis with a 24h TTL. It is advisory only: when Redis is not
// configured the service is nil and every method no-ops, so the webhook
// contract never depends on it.
type DeliveryStatusService struct {
	client *redis.Client
}

const deliveryStatusTTL = 24 * time.Hour

// NewDeliveryStatusService creates a new delivery status service. A nil
// client yields a disabled (nil) service.
func NewDeliveryStatusService(client *redis.Client) *DeliveryStatusService {
	if client == nil {
		return nil
	}
	return &DeliveryStatusService{client: client}
}

func statusKey(transactionID string) string {
	return fmt.Sprintf("webhook_status:%s", transactionID)
}

// Record stores the outcome for a transaction id. A transaction id seen
// within the TTL window is logged as a duplicate but still recorded - the
// upstream owns retry semantics, this service only observes.
func (d *DeliveryStatusService) Record(ctx context.Context, status DeliveryStatus) {
	if d == nil || status.TransactionID == "" {
		return
	}

	key := statusKey(status.TransactionID)

	exists, err := d.client.Exists(ctx, key).Result()
	if err == nil && exists > 0 {
		logging.Infof("Duplicate transaction observed - transaction_id: %s", status.TransactionID)
	}

	status.RecordedAt = time.Now()
	data, err := json.Marshal(status)
	if err != nil {
		logging.Errorf("Failed to marshal delivery status: %v", err)
		return
	}

	if err := d.client.Set(ctx, key, data, deliveryStatusTTL).Err(); err != nil {
		logging.Errorf("Failed to record delivery status - transaction_id: %s, error: %v", status.TransactionID, err)
	}
}

// Get returns the recorded outcome for a transaction id, or found=false
// when unknown, expired or the service is disabled.
func (d *DeliveryStatusService) Get(ctx context.Context, transactionID string) (DeliveryStatus, bool) {
	var status DeliveryStatus
	if d == nil || transactionID == "" {
		return status, false
	}

	data, err := d.client.Get(ctx, statusKey(transactionID)).Result()
	if err != nil {
		if err != redis.Nil {
			logging.Errorf("Failed to read delivery status - transaction_id: %s, error: %v", transactionID, err)
		}
		return status, false
	}

	if err := json.Unmarshal([]byte(data), &status); err != nil {
		logging.Errorf("Failed to decode delivery status - transaction_id: %s, error: %v", transactionID, err)
		return status, false
	}

	return status, true
}
