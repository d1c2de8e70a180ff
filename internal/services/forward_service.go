package services

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"payment-webhook-api/internal/config"
	"payment-webhook-api/internal/models"
	"payment-webhook-api/pkg/logging"
)

// ForwardService relays validated payment notifications to the upstream
// partner API: it builds the canonical body, optionally attaches the
// integrity hash, encrypts and POSTs, then maps the upstream outcome back
// to a caller-facing status and response body.
type ForwardService struct {
	httpClient *http.Client
}

// NewForwardService creates a new forward service
func NewForwardService() *ForwardService {
	return &ForwardService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Forward runs the full forwarding pipeline and returns the HTTP status and
// response body this service should answer with. Configuration problems map
// to 500 CONFIG_MISSING; everything else that fails maps to 502
// FORWARD_FAILED. A reachable upstream has its status mirrored verbatim.
func (s *ForwardService) Forward(cfg config.ForwardingConfig, phoneNumber string, payload models.Payload) (int, map[string]interface{}) {
	if cfg.APIURL == "" || cfg.AESKey == "" || cfg.BizToken == "" {
		logging.Errorf("Forwarding config incomplete - api_url set: %t, aes_key set: %t, token set: %t",
			cfg.APIURL != "", cfg.AESKey != "", cfg.BizToken != "")
		return http.StatusInternalServerError, configMissingResponse()
	}

	body, hasChannels := BuildForwardBody(phoneNumber, payload)

	if cfg.UseHash {
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			logging.Errorf("Hash enabled but client credentials missing")
			return http.StatusInternalServerError, configMissingResponse()
		}
		body.Hash = PipeHash(cfg.ClientID, cfg.ClientSecret, hashValues(body, hasChannels))
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		logging.Errorf("Failed to marshal forward body: %v", err)
		return http.StatusBadGateway, forwardFailedResponse()
	}

	ciphertext, err := AESEncryptBase64(jsonBody, []byte(cfg.AESKey))
	if err != nil {
		logging.Errorf("Failed to encrypt forward body: %v", err)
		return http.StatusBadGateway, forwardFailedResponse()
	}

	// The upstream contract wants the raw base64 ciphertext as the body
	// while still declaring application/json. Preserved as required.
	req, err := http.NewRequest("POST", cfg.APIURL, strings.NewReader(ciphertext))
	if err != nil {
		logging.Errorf("Failed to create upstream request: %v", err)
		return http.StatusBadGateway, forwardFailedResponse()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Biz-Token", cfg.BizToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logging.Errorf("Upstream request failed: %v", err)
		return http.StatusBadGateway, forwardFailedResponse()
	}
	defer resp.Body.Close()

	respText, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.Errorf("Failed to read upstream response: %v", err)
		return http.StatusBadGateway, forwardFailedResponse()
	}

	var data interface{}
	if err := json.Unmarshal(respText, &data); err != nil {
		data = map[string]interface{}{"raw": string(respText)}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	logging.Infof("Upstream responded - status: %d, ok: %t, phone: %s", resp.StatusCode, ok, phoneNumber)

	return resp.StatusCode, map[string]interface{}{
		"success":   ok,
		"forwarded": true,
		"status":    resp.StatusCode,
		"data":      data,
	}
}

// BuildForwardBody applies the upstream defaults to the raw payload fields.
// The second return value reports whether the incoming notification_channel
// object carried any keys, which gates the channel block of the hash input.
func BuildForwardBody(phoneNumber string, payload models.Payload) (models.ForwardRequestBody, bool) {
	selector := firstString(payload, "template_name", "templateID", "templateId", "template_id")
	template, lang := models.ResolveTemplate(selector, stringField(payload, "pref_lang_code"))

	channels, hasChannels := channelFlags(payload["notification_channel"])

	body := models.ForwardRequestBody{
		PhoneNumber:             phoneNumber,
		Email:                   stringField(payload, "email"),
		FullName:                stringField(payload, "full_name"),
		Amount:                  AmountFrom(payload),
		DueDate:                 coerceDueDate(stringField(payload, "due_date")),
		AccountID:               stringField(payload, "account_id"),
		SendNotification:        sendNotification(payload["send_notification"]),
		TemplateName:            template,
		MerchantReferenceNumber: stringField(payload, "merchant_reference_number"),
		PrefLangCode:            lang,
		NotificationChannel:     channels,
		CustomField:             customFields(payload["custom_field"]),
	}
	return body, hasChannels
}

// hashValues returns the ordered value list the integrity hash is computed
// over. The order is fixed by the upstream's verifier and must not follow
// map iteration order. The notification_channel email flag travels under
// the name notification_email to keep it apart from the top-level email.
func hashValues(body models.ForwardRequestBody, hasChannels bool) []string {
	values := []string{
		body.PhoneNumber,
		body.Email,
		body.FullName,
		FormatNumber(body.Amount),
		body.DueDate,
		body.AccountID,
		strconv.FormatBool(body.SendNotification),
		body.TemplateName,
		body.MerchantReferenceNumber,
		body.PrefLangCode,
	}

	if hasChannels {
		ch := body.NotificationChannel
		values = append(values, ch.Whatsapp, ch.WhatsappOD)
		if ch.WhatsappUPIINTENT == "Y" {
			values = append(values, ch.WhatsappUPIINTENT)
		}
		values = append(values, ch.SMS, ch.Email) // ch.Email == notification_email
	}

	return append(values, body.CustomField.Values()...)
}

// AmountFrom returns the effective amount for a payload: dueAmount wins
// over amount when present, and anything unparsable defaults to 1.
func AmountFrom(payload models.Payload) float64 {
	if v, ok := payload["dueAmount"]; ok {
		return coerceAmount(v)
	}
	return coerceAmount(payload["amount"])
}

// coerceAmount parses the selected amount value, defaulting to 1 when it is
// absent, blank or not numeric.
func coerceAmount(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 1
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return parsed
		}
	}
	return 1
}

// coerceDueDate passes ISO YYYY-MM-DD dates through and substitutes a due
// date three days out for anything else.
func coerceDueDate(raw string) string {
	if raw != "" {
		if _, err := time.Parse("2006-01-02", raw); err == nil {
			return raw
		}
	}
	return time.Now().AddDate(0, 0, 3).Format("2006-01-02")
}

// sendNotification defaults to true unless the field is explicitly the
// boolean false.
func sendNotification(raw interface{}) bool {
	if b, ok := raw.(bool); ok && !b {
		return false
	}
	return true
}

// channelFlags converts the incoming channel membership flags to the
// upstream's "Y"/"N" strings. A non-object input is treated as empty, so
// every flag takes its default. whatsappODPL defaults to "Y"; everything
// else to "N".
func channelFlags(raw interface{}) (models.NotificationChannel, bool) {
	incoming, _ := raw.(map[string]interface{})

	flag := func(key, fallback string) string {
		v, ok := incoming[key]
		if !ok {
			return fallback
		}
		if truthy(v) {
			return "Y"
		}
		return "N"
	}

	return models.NotificationChannel{
		Whatsapp:          flag("whatsapp", "N"),
		WhatsappOD:        flag("whatsappOD", "N"),
		WhatsappUPIINTENT: flag("whatsappUPIINTENT", "N"),
		WhatsappODPL:      flag("whatsappODPL", "Y"),
		SMS:               flag("sms", "N"),
		Email:             flag("email", "N"),
	}, len(incoming) > 0
}

// customFields pulls custom_field1..custom_field8 from the incoming
// custom_field object, defaulting each to "". Non-object inputs are treated
// as empty.
func customFields(raw interface{}) models.CustomFields {
	incoming, _ := raw.(map[string]interface{})

	get := func(key string) string {
		return coerceString(incoming[key])
	}

	return models.CustomFields{
		CustomField1: get("custom_field1"),
		CustomField2: get("custom_field2"),
		CustomField3: get("custom_field3"),
		CustomField4: get("custom_field4"),
		CustomField5: get("custom_field5"),
		CustomField6: get("custom_field6"),
		CustomField7: get("custom_field7"),
		CustomField8: get("custom_field8"),
	}
}

// truthy mirrors the loose boolean semantics partners rely on: "1", any
// non-empty string, a non-zero number or true all enable a flag.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func stringField(payload models.Payload, key string) string {
	return coerceString(payload[key])
}

func firstString(payload models.Payload, keys ...string) string {
	for _, key := range keys {
		if s := stringField(payload, key); s != "" {
			return s
		}
	}
	return ""
}

// coerceString renders strings and numbers as strings; everything else
// (including nil) becomes "".
func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return FormatNumber(t)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// FormatNumber renders a number the way partners expect: no exponent and no
// trailing zeros, so 3000 stays "3000" and 30.5 stays "30.5".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NumericOrString parses form values that may be numbers, keeping the
// original string when they are not.
func NumericOrString(s string) interface{} {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return parsed
		}
	}
	return s
}

func configMissingResponse() map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error":   "CONFIG_MISSING",
		"message": "Forwarding configuration missing",
	}
}

func forwardFailedResponse() map[string]interface{} {
	return map[string]interface{}{
		"success":   false,
		"forwarded": true,
		"error":     "FORWARD_FAILED",
	}
}
