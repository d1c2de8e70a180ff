package services

import (
	"context"
	"fmt"
	"time"

	"payment-webhook-api/internal/config"
	"payment-webhook-api/internal/models"
	"payment-webhook-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// EmailNotifier sends an acknowledgment email via Brevo when a notification
// is accepted locally (forwarding disabled) and the payload flags the email
// channel. Disabled unless BREVO_API_KEY and BREVO_FROM_EMAIL are set.
type EmailNotifier struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewEmailNotifier creates a new email notifier, or nil when Brevo is not
// configured.
func NewEmailNotifier() *EmailNotifier {
	if config.AppConfig == nil || config.AppConfig.BrevoAPIKey == "" || config.AppConfig.BrevoFromEmail == "" {
		return nil
	}

	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", config.AppConfig.BrevoAPIKey)

	return &EmailNotifier{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: config.AppConfig.BrevoFromEmail,
		fromName:  config.AppConfig.BrevoFromName,
	}
}

// NotifyAcknowledged sends the acknowledgment asynchronously so the webhook
// response never waits on Brevo. Called from the local-ack path only.
func (n *EmailNotifier) NotifyAcknowledged(payload models.Payload, phoneNumber string) {
	if n == nil {
		return
	}

	to := stringField(payload, "email")
	if to == "" {
		return
	}
	if !sendNotification(payload["send_notification"]) {
		return
	}
	if channels, _ := channelFlags(payload["notification_channel"]); channels.Email != "Y" {
		return
	}

	go func() {
		if err := n.send(to, phoneNumber, AmountFrom(payload)); err != nil {
			logging.Errorf("Acknowledgment email failed - to: %s, error: %v", to, err)
			return
		}
		logging.Infof("Acknowledgment email sent - to: %s, phone: %s", to, phoneNumber)
	}()
}

func (n *EmailNotifier) send(to, phoneNumber string, amount float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subject := "Payment notification received"
	text := fmt.Sprintf("We received a payment notification for %s (amount %s). No action is required.",
		phoneNumber, FormatNumber(amount))
	html := fmt.Sprintf("<p>We received a payment notification for <b>%s</b> (amount %s).</p><p>No action is required.</p>",
		phoneNumber, FormatNumber(amount))

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  n.fromName,
			Email: n.fromEmail,
		},
		To:          []brevo.SendSmtpEmailTo{{Email: to}},
		Subject:     subject,
		HtmlContent: html,
		TextContent: text,
	}

	_, resp, err := n.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("brevo send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}
