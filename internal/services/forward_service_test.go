package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-webhook-api/internal/config"
	"payment-webhook-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultDueDates() []string {
	// Computed twice to tolerate a midnight rollover mid-test.
	return []string{
		time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
	}
}

func TestBuildForwardBodyDefaults(t *testing.T) {
	body, hasChannels := BuildForwardBody("+919876543210", models.Payload{})

	assert.Equal(t, "+919876543210", body.PhoneNumber)
	assert.Equal(t, float64(1), body.Amount)
	assert.Contains(t, defaultDueDates(), body.DueDate)
	assert.True(t, body.SendNotification)
	assert.Equal(t, models.DefaultTemplate, body.TemplateName)
	assert.Equal(t, "en", body.PrefLangCode)
	assert.False(t, hasChannels)

	assert.Equal(t, "N", body.NotificationChannel.Whatsapp)
	assert.Equal(t, "N", body.NotificationChannel.WhatsappOD)
	assert.Equal(t, "N", body.NotificationChannel.WhatsappUPIINTENT)
	assert.Equal(t, "Y", body.NotificationChannel.WhatsappODPL)
	assert.Equal(t, "N", body.NotificationChannel.SMS)
	assert.Equal(t, "N", body.NotificationChannel.Email)

	for _, v := range body.CustomField.Values() {
		assert.Equal(t, "", v)
	}
}

func TestBuildForwardBodyAmountSelection(t *testing.T) {
	cases := []struct {
		name    string
		payload models.Payload
		want    float64
	}{
		{"due amount wins", models.Payload{"amount": float64(500), "dueAmount": float64(3000)}, 3000},
		{"amount alone", models.Payload{"amount": float64(500)}, 500},
		{"numeric string", models.Payload{"amount": "250.5"}, 250.5},
		{"blank string", models.Payload{"amount": "  "}, 1},
		{"non numeric", models.Payload{"amount": "lots"}, 1},
		{"due amount string wins", models.Payload{"amount": float64(500), "dueAmount": "99"}, 99},
		{"unparsable due amount", models.Payload{"amount": float64(500), "dueAmount": "x"}, 1},
		{"absent", models.Payload{}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := BuildForwardBody("123", tc.payload)
			assert.Equal(t, tc.want, body.Amount)
		})
	}
}

func TestBuildForwardBodyDueDate(t *testing.T) {
	body, _ := BuildForwardBody("123", models.Payload{"due_date": "2025-04-20"})
	assert.Equal(t, "2025-04-20", body.DueDate)

	body, _ = BuildForwardBody("123", models.Payload{"due_date": "04/20/2025"})
	assert.Contains(t, defaultDueDates(), body.DueDate)

	body, _ = BuildForwardBody("123", models.Payload{"due_date": "soon"})
	assert.Contains(t, defaultDueDates(), body.DueDate)
}

func TestBuildForwardBodySendNotification(t *testing.T) {
	body, _ := BuildForwardBody("123", models.Payload{"send_notification": false})
	assert.False(t, body.SendNotification)

	// Only the boolean false disables it.
	body, _ = BuildForwardBody("123", models.Payload{"send_notification": "false"})
	assert.True(t, body.SendNotification)

	body, _ = BuildForwardBody("123", models.Payload{"send_notification": true})
	assert.True(t, body.SendNotification)
}

func TestBuildForwardBodyTemplates(t *testing.T) {
	for _, alias := range []string{"template_name", "templateID", "templateId", "template_id"} {
		body, _ := BuildForwardBody("123", models.Payload{alias: "custom_template"})
		assert.Equal(t, "custom_template", body.TemplateName, "alias %s", alias)
		assert.Equal(t, "en", body.PrefLangCode)
	}

	body, _ := BuildForwardBody("123", models.Payload{"templateID": models.MalayalamTemplate, "pref_lang_code": "en"})
	assert.Equal(t, models.MalayalamTemplate, body.TemplateName)
	assert.Equal(t, "ml", body.PrefLangCode, "malayalam template forces ml")

	body, _ = BuildForwardBody("123", models.Payload{"pref_lang_code": "hi"})
	assert.Equal(t, "hi", body.PrefLangCode)
}

func TestBuildForwardBodyChannels(t *testing.T) {
	body, hasChannels := BuildForwardBody("123", models.Payload{
		"notification_channel": map[string]interface{}{
			"whatsapp": "1",
			"sms":      "",
			"email":    true,
		},
	})

	assert.True(t, hasChannels)
	assert.Equal(t, "Y", body.NotificationChannel.Whatsapp)
	assert.Equal(t, "N", body.NotificationChannel.SMS)
	assert.Equal(t, "Y", body.NotificationChannel.Email)
	assert.Equal(t, "N", body.NotificationChannel.WhatsappOD)
	assert.Equal(t, "Y", body.NotificationChannel.WhatsappODPL)

	// Malformed channel input falls back to defaults.
	body, hasChannels = BuildForwardBody("123", models.Payload{"notification_channel": "yes please"})
	assert.False(t, hasChannels)
	assert.Equal(t, "N", body.NotificationChannel.Whatsapp)
	assert.Equal(t, "Y", body.NotificationChannel.WhatsappODPL)
}

func TestBuildForwardBodyCustomFields(t *testing.T) {
	body, _ := BuildForwardBody("123", models.Payload{
		"custom_field": map[string]interface{}{
			"custom_field1": "a",
			"custom_field3": float64(7),
		},
	})

	assert.Equal(t, "a", body.CustomField.CustomField1)
	assert.Equal(t, "", body.CustomField.CustomField2)
	assert.Equal(t, "7", body.CustomField.CustomField3)

	body, _ = BuildForwardBody("123", models.Payload{"custom_field": []interface{}{"nope"}})
	for _, v := range body.CustomField.Values() {
		assert.Equal(t, "", v)
	}
}

func TestHashValuesOrdering(t *testing.T) {
	body, hasChannels := BuildForwardBody("+919876543210", models.Payload{
		"email":                     "a@b.com",
		"full_name":                 "A B",
		"dueAmount":                 float64(3000),
		"due_date":                  "2025-04-20",
		"account_id":                "acc1",
		"merchant_reference_number": "mrn1",
		"notification_channel": map[string]interface{}{
			"whatsapp": "1",
			"sms":      "1",
		},
		"custom_field": map[string]interface{}{"custom_field1": "c1"},
	})
	require.True(t, hasChannels)

	values := hashValues(body, hasChannels)

	// 10 base fields + 4 channel flags (UPIINTENT omitted when N) + 8 custom.
	require.Len(t, values, 22)
	assert.Equal(t, []string{
		"+919876543210", "a@b.com", "A B", "3000", "2025-04-20", "acc1",
		"true", models.DefaultTemplate, "mrn1", "en",
		"Y", "N", "Y", "N",
		"c1", "", "", "", "", "", "", "",
	}, values)
}

func TestHashValuesUPIIntentIncludedWhenEnabled(t *testing.T) {
	body, hasChannels := BuildForwardBody("123", models.Payload{
		"notification_channel": map[string]interface{}{"whatsappUPIINTENT": "1"},
	})
	require.True(t, hasChannels)

	values := hashValues(body, hasChannels)
	require.Len(t, values, 23)
	assert.Equal(t, "Y", values[12])
}

func TestHashValuesSkipChannelBlockWhenAbsent(t *testing.T) {
	body, hasChannels := BuildForwardBody("123", models.Payload{})
	require.False(t, hasChannels)

	values := hashValues(body, hasChannels)
	assert.Len(t, values, 18)
}

func forwardingConfig(url string) config.ForwardingConfig {
	return config.ForwardingConfig{
		Enabled:  true,
		APIURL:   url,
		AESKey:   string(testKey),
		BizToken: "token-1",
	}
}

func TestForwardConfigMissing(t *testing.T) {
	svc := NewForwardService()

	cases := []struct {
		name string
		cfg  config.ForwardingConfig
	}{
		{"no url", config.ForwardingConfig{AESKey: string(testKey), BizToken: "t"}},
		{"no key", config.ForwardingConfig{APIURL: "http://upstream", BizToken: "t"}},
		{"no token", config.ForwardingConfig{APIURL: "http://upstream", AESKey: string(testKey)}},
		{"blank url", config.ForwardingConfig{APIURL: "", AESKey: string(testKey), BizToken: "t"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := svc.Forward(tc.cfg, "123", models.Payload{})
			assert.Equal(t, http.StatusInternalServerError, status)
			assert.Equal(t, "CONFIG_MISSING", resp["error"])
			assert.Equal(t, false, resp["success"])
		})
	}
}

func TestForwardHashRequiresClientCredentials(t *testing.T) {
	svc := NewForwardService()

	cfg := forwardingConfig("http://upstream.invalid")
	cfg.UseHash = true
	cfg.ClientID = "client"
	// Secret missing.

	status, resp := svc.Forward(cfg, "123", models.Payload{})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "CONFIG_MISSING", resp["error"])
}

func TestForwardSendsEncryptedCanonicalBody(t *testing.T) {
	var gotToken, gotContentType string
	var gotBody []byte

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Biz-Token")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer upstream.Close()

	svc := NewForwardService()
	cfg := forwardingConfig(upstream.URL)
	cfg.UseHash = true
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"

	status, resp := svc.Forward(cfg, "+919876543210", models.Payload{
		"amount":    float64(500),
		"dueAmount": float64(3000),
	})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["forwarded"])
	assert.Equal(t, http.StatusOK, resp["status"])
	assert.Equal(t, map[string]interface{}{"accepted": true}, resp["data"])

	assert.Equal(t, "token-1", gotToken)
	assert.Equal(t, "application/json", gotContentType)

	// The body is base64 ciphertext, decryptable with the shared key.
	plaintext, err := AESDecryptBase64(string(gotBody), testKey)
	require.NoError(t, err)

	var sent models.ForwardRequestBody
	require.NoError(t, json.Unmarshal(plaintext, &sent))
	assert.Equal(t, "+919876543210", sent.PhoneNumber)
	assert.Equal(t, float64(3000), sent.Amount, "dueAmount wins over amount")
	assert.Len(t, sent.Hash, 128)

	expected := PipeHash("client", "secret", hashValues(sentWithoutHash(sent), false))
	assert.Equal(t, expected, sent.Hash)
}

// sentWithoutHash strips the hash so the body can be re-hashed for
// comparison; the hash field never feeds its own computation.
func sentWithoutHash(body models.ForwardRequestBody) models.ForwardRequestBody {
	body.Hash = ""
	return body
}

func TestForwardUpstreamErrorPropagates(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad payload"}`))
	}))
	defer upstream.Close()

	svc := NewForwardService()
	status, resp := svc.Forward(forwardingConfig(upstream.URL), "123", models.Payload{})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["forwarded"])
	assert.Equal(t, http.StatusBadRequest, resp["status"])
}

func TestForwardUpstreamRawBodyWrapped(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain OK"))
	}))
	defer upstream.Close()

	svc := NewForwardService()
	status, resp := svc.Forward(forwardingConfig(upstream.URL), "123", models.Payload{})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"raw": "plain OK"}, resp["data"])
}

func TestForwardNetworkFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close() // connection refused from here on

	svc := NewForwardService()
	status, resp := svc.Forward(forwardingConfig(url), "123", models.Payload{})

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "FORWARD_FAILED", resp["error"])
	assert.Equal(t, true, resp["forwarded"])
	assert.Equal(t, false, resp["success"])
}

func TestForwardBadKeyLengthFails(t *testing.T) {
	svc := NewForwardService()
	cfg := forwardingConfig("http://upstream.invalid")
	cfg.AESKey = "too short"

	status, resp := svc.Forward(cfg, "123", models.Payload{})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "FORWARD_FAILED", resp["error"])
}

func TestNumericOrString(t *testing.T) {
	assert.Equal(t, float64(12.5), NumericOrString("12.5"))
	assert.Equal(t, "12,5", NumericOrString("12,5"))
	assert.Equal(t, "", NumericOrString(""))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3000", FormatNumber(3000))
	assert.Equal(t, "30.5", FormatNumber(30.5))
	assert.Equal(t, "9953969666", FormatNumber(9953969666))
}
