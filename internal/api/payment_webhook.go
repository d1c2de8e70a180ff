package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"payment-webhook-api/internal/config"
	"payment-webhook-api/internal/models"
	"payment-webhook-api/internal/response"
	"payment-webhook-api/internal/services"
	"payment-webhook-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Version reported by the health payload
const Version = "1.0.0"

// Accepted phone characters: digits, spaces, hyphens, plus, parentheses,
// at least 10 characters total.
var phonePattern = regexp.MustCompile(`^[0-9\s\-+()]{10,}$`)

// Fields checked for the legacy "hi" echo shortcut.
var messageFields = []string{"message", "msg", "text", "body"}

// PaymentWebhookPost normalizes an inbound payment notification and either
// acknowledges it locally or forwards it upstream, depending on the
// forwarding flags.
func PaymentWebhookPost(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			// Thrown values are not guaranteed to be errors.
			msg := "Unknown error"
			if err, ok := r.(error); ok {
				msg = err.Error()
			}
			logging.Errorf("Unexpected error handling webhook: %v", r)
			response.Internal(c, msg)
		}
	}()

	body, err := c.GetRawData()
	if err != nil {
		logging.Errorf("Failed to read request body: %v", err)
		response.ErrorCode(c, http.StatusBadRequest, "INVALID_JSON")
		return
	}

	payload, done := parseBody(c, body)
	if done {
		return
	}

	// Echo shortcut applies uniformly after parsing, whatever else the
	// payload carries.
	for _, field := range messageFields {
		if s, ok := payload[field].(string); ok && isHi(s) {
			logging.Infof("Echo shortcut triggered via field %q", field)
			response.Echo(c)
			return
		}
	}

	phoneNumber, done := extractPhoneNumber(c, payload)
	if done {
		return
	}

	transactionID := auditString(payload["transactionId"])
	logging.Infof("Webhook received - phone: %s, amount: %v, transactionId: %s, status: %s",
		phoneNumber, services.AmountFrom(payload), transactionID, auditString(payload["status"]))

	forwarding := config.LoadForwarding()
	if !forwarding.Enabled {
		acknowledgeLocally(c, payload, phoneNumber, transactionID)
		return
	}

	status, result := forwardService.Forward(forwarding, phoneNumber, payload)

	recordOutcome(c, payload, phoneNumber, transactionID, status, result)
	c.JSON(status, result)
}

// parseBody dispatches on content type and yields the payload object. The
// second return value reports that a response (echo or error) was already
// written.
func parseBody(c *gin.Context, body []byte) (models.Payload, bool) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))

	switch {
	case strings.Contains(contentType, "text/plain"):
		text := string(body)
		if isHi(text) {
			response.Echo(c)
			return nil, true
		}
		return parseJSONBody(c, body)

	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(body))
		if err != nil {
			logging.Errorf("Failed to parse form body: %v", err)
			response.ErrorCode(c, http.StatusBadRequest, "INVALID_JSON")
			return nil, true
		}
		if isHi(values.Get("message")) || isHi(values.Get("msg")) {
			response.Echo(c)
			return nil, true
		}
		return payloadFromForm(values), false

	default:
		return parseJSONBody(c, body)
	}
}

// parseJSONBody handles the default JSON path plus JSON-in-text bodies.
// Bare strings only survive as the echo shortcut.
func parseJSONBody(c *gin.Context, body []byte) (models.Payload, bool) {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed == nil {
		response.ErrorCode(c, http.StatusBadRequest, "INVALID_JSON")
		return nil, true
	}

	switch v := parsed.(type) {
	case string:
		if isHi(v) {
			response.Echo(c)
			return nil, true
		}
		response.ErrorCode(c, http.StatusBadRequest, "INVALID_JSON")
		return nil, true
	case map[string]interface{}:
		return models.Payload(v), false
	default:
		// Arrays, numbers and booleans carry no notification fields.
		response.ErrorCode(c, http.StatusBadRequest, "INVALID_JSON")
		return nil, true
	}
}

// payloadFromForm lifts the known form fields into the payload shape,
// coercing the amount fields numerically where possible.
func payloadFromForm(values url.Values) models.Payload {
	payload := models.Payload{}

	for _, key := range []string{
		"phone_number", "phoneNumber", "transactionId", "status", "email",
		"full_name", "due_date", "account_id", "send_notification",
		"template_name", "templateID", "templateId", "template_id",
		"merchant_reference_number", "pref_lang_code",
	} {
		if values.Has(key) {
			payload[key] = values.Get(key)
		}
	}

	for _, key := range []string{"amount", "dueAmount"} {
		if values.Has(key) {
			payload[key] = services.NumericOrString(values.Get(key))
		}
	}

	return payload
}

// extractPhoneNumber validates and normalizes the phone number, writing the
// error response itself when the payload fails.
func extractPhoneNumber(c *gin.Context, payload models.Payload) (string, bool) {
	raw, ok := payload["phone_number"]
	if !ok || raw == nil {
		raw = payload["phoneNumber"]
	}

	var phone string
	switch v := raw.(type) {
	case string:
		phone = v
	case float64:
		phone = services.FormatNumber(v)
	default:
		response.ErrorCode(c, http.StatusBadRequest, "MISSING_PHONE_NUMBER")
		return "", true
	}

	if strings.TrimSpace(phone) == "" {
		response.ErrorCode(c, http.StatusBadRequest, "MISSING_PHONE_NUMBER")
		return "", true
	}

	if !phonePattern.MatchString(phone) {
		logging.Infof("Rejected phone number format: %q", phone)
		response.ErrorCode(c, http.StatusBadRequest, "INVALID_PHONE_FORMAT")
		return "", true
	}

	return normalizePhone(phone), false
}

// normalizePhone strips separators and collapses a leading 00 to +.
func normalizePhone(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, raw)

	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	}

	return cleaned
}

// acknowledgeLocally answers the non-forwarding path and fires the optional
// side effects (audit row, delivery status, acknowledgment email).
func acknowledgeLocally(c *gin.Context, payload models.Payload, phoneNumber, transactionID string) {
	resp := gin.H{
		"success":     true,
		"message":     fmt.Sprintf("Phone number %s received", phoneNumber),
		"phoneNumber": phoneNumber,
		"timestamp":   time.Now().Format(time.RFC3339),
	}
	if v, ok := payload["transactionId"]; ok && v != nil {
		resp["transactionId"] = v
	}

	emailNotifier.NotifyAcknowledged(payload, phoneNumber)

	auditService.Record(models.WebhookEvent{
		PhoneNumber:   phoneNumber,
		Amount:        services.AmountFrom(payload),
		TransactionID: transactionID,
		Status:        auditString(payload["status"]),
		Forwarded:     false,
		StatusCode:    http.StatusOK,
		Outcome:       "acknowledged",
	})
	statusStore.Record(c.Request.Context(), services.DeliveryStatus{
		TransactionID: transactionID,
		PhoneNumber:   phoneNumber,
		Forwarded:     false,
		StatusCode:    http.StatusOK,
		Outcome:       "acknowledged",
	})

	c.JSON(http.StatusOK, resp)
}

// recordOutcome writes the audit row and delivery status for a forwarding
// attempt.
func recordOutcome(c *gin.Context, payload models.Payload, phoneNumber, transactionID string, status int, result map[string]interface{}) {
	outcome := "forwarded"
	switch result["error"] {
	case "CONFIG_MISSING":
		outcome = "config_missing"
	case "FORWARD_FAILED":
		outcome = "forward_failed"
	default:
		if ok, _ := result["success"].(bool); !ok {
			outcome = "upstream_rejected"
		}
	}

	auditService.Record(models.WebhookEvent{
		PhoneNumber:   phoneNumber,
		Amount:        services.AmountFrom(payload),
		TransactionID: transactionID,
		Status:        auditString(payload["status"]),
		Forwarded:     true,
		StatusCode:    status,
		Outcome:       outcome,
	})
	statusStore.Record(c.Request.Context(), services.DeliveryStatus{
		TransactionID: transactionID,
		PhoneNumber:   phoneNumber,
		Forwarded:     true,
		StatusCode:    status,
		Outcome:       outcome,
	})
}

// PaymentWebhookGet serves the health payload, or the echo shortcut when a
// message query parameter says hi.
func PaymentWebhookGet(c *gin.Context) {
	if isHi(c.Query("message")) || isHi(c.Query("msg")) {
		response.Echo(c)
		return
	}

	serviceName := "Payment Webhook Handler"
	if config.AppConfig != nil && config.AppConfig.ServiceName != "" {
		serviceName = config.AppConfig.ServiceName
	}

	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"status":  "operational",
		"version": Version,
		"endpoints": gin.H{
			"POST /api/payment-webhook":       "receive a payment notification",
			"GET /api/payment-webhook":        "health check",
			"GET /api/payment-webhook/status": "last forwarding outcome by transaction_id",
		},
	})
}

// ForwardStatusGet looks up the last recorded forwarding outcome for a
// transaction id.
func ForwardStatusGet(c *gin.Context) {
	transactionID := c.Query("transaction_id")
	if transactionID == "" {
		response.ErrorCode(c, http.StatusBadRequest, "MISSING_TRANSACTION_ID")
		return
	}

	status, found := statusStore.Get(c.Request.Context(), transactionID)
	if !found {
		response.ErrorCode(c, http.StatusNotFound, "NOT_FOUND")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    status,
	})
}

func isHi(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "hi")
}

// auditString renders a payload field for the audit trail; non-scalar
// values become "".
func auditString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return services.FormatNumber(t)
	case bool:
		return fmt.Sprintf("%t", t)
	}
	return ""
}
