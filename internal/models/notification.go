package models

// Payload is the loosely typed notification record extracted from an
// inbound request. Partners send the same fields as JSON, form data or
// JSON-in-text, with strings and numbers used interchangeably, so the
// normalizer keeps the raw shape and coercion happens where a field is
// consumed.
type Payload map[string]interface{}

// NotificationChannel carries the per-channel enable flags in the canonical
// forwarded body. The upstream expects literal "Y"/"N" strings.
type NotificationChannel struct {
	Whatsapp          string `json:"whatsapp"`
	WhatsappOD        string `json:"whatsappOD"`
	WhatsappUPIINTENT string `json:"whatsappUPIINTENT"`
	WhatsappODPL      string `json:"whatsappODPL"`
	SMS               string `json:"sms"`
	Email             string `json:"email"`
}

// CustomFields holds the eight free-form partner fields. Absent fields are
// forwarded as empty strings.
type CustomFields struct {
	CustomField1 string `json:"custom_field1"`
	CustomField2 string `json:"custom_field2"`
	CustomField3 string `json:"custom_field3"`
	CustomField4 string `json:"custom_field4"`
	CustomField5 string `json:"custom_field5"`
	CustomField6 string `json:"custom_field6"`
	CustomField7 string `json:"custom_field7"`
	CustomField8 string `json:"custom_field8"`
}

// Values returns the custom fields in positional order.
func (cf CustomFields) Values() []string {
	return []string{
		cf.CustomField1, cf.CustomField2, cf.CustomField3, cf.CustomField4,
		cf.CustomField5, cf.CustomField6, cf.CustomField7, cf.CustomField8,
	}
}

// ForwardRequestBody is the canonical, defaulted record encrypted and sent
// to the upstream partner API.
type ForwardRequestBody struct {
	PhoneNumber             string              `json:"phone_number"`
	Email                   string              `json:"email"`
	FullName                string              `json:"full_name"`
	Amount                  float64             `json:"amount"`
	DueDate                 string              `json:"due_date"`
	AccountID               string              `json:"account_id"`
	SendNotification        bool                `json:"send_notification"`
	TemplateName            string              `json:"template_name"`
	MerchantReferenceNumber string              `json:"merchant_reference_number"`
	PrefLangCode            string              `json:"pref_lang_code"`
	NotificationChannel     NotificationChannel `json:"notification_channel"`
	CustomField             CustomFields        `json:"custom_field"`
	Hash                    string              `json:"hash,omitempty"`
}

const (
	// DefaultTemplate is used when no template selector is present.
	DefaultTemplate = "pl_pmt_od_template"
	// MalayalamTemplate forces pref_lang_code to "ml" when selected.
	MalayalamTemplate = "pl_pmt_od_template_ml"
)

// ResolveTemplate maps a template selector to the forwarded template name
// and the language it implies. An empty selector resolves to the default
// template; the Malayalam template always forces "ml" regardless of any
// requested language.
func ResolveTemplate(selector, requestedLang string) (template, lang string) {
	template = DefaultTemplate
	if selector != "" {
		template = selector
	}

	lang = "en"
	if requestedLang != "" {
		lang = requestedLang
	}
	if template == MalayalamTemplate {
		lang = "ml"
	}
	return template, lang
}
