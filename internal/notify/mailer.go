// Package notify turns reservation events into guest emails. It consumes
// the event bus rather than being called inline, so a slow mail provider
// never holds up a booking.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/seatwise/reservations/pkg/config"
	"github.com/seatwise/reservations/pkg/logger"
)

// Mailer sends a single email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}

// NewMailer picks an implementation from config: dev mode logs instead of
// sending, a MailerSend key selects the API client, otherwise plain SMTP.
func NewMailer(cfg config.EmailConfig) Mailer {
	if cfg.DevMode {
		return &DevMailer{}
	}
	if cfg.MailerSendKey != "" {
		return NewMailerSendMailer(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	}
	return NewSMTPMailer(cfg)
}

// MailerSendMailer delivers through the MailerSend API.
type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendMailer(apiKey, fromName, fromEmail string) *MailerSendMailer {
	return &MailerSendMailer{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
}

func (m *MailerSendMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return "", errors.New("empty recipient email")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend returns the id in X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

// DevMailer prints emails to the log instead of sending them. Default in
// local development.
type DevMailer struct{}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("dev mailer: email suppressed",
		"to", toEmail,
		"to_name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}
