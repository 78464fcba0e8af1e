// Package notify alerts operators when an acquisition gives up.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	libtelemetry "ecourts-backend/lib/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = libtelemetry.Tracer("notify")

// Alert describes an acquisition that ended fatally.
type Alert struct {
	CaseID   string
	Cutoff   string
	Reason   string
	Attempts int
}

type Notifier interface {
	NotifyFatal(ctx context.Context, alert Alert) error
}

type Nop struct{}

func (Nop) NotifyFatal(ctx context.Context, alert Alert) error {
	return nil
}

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Mailer sends alerts by email.
type Mailer struct {
	config SmtpConfig
}

func NewMailer(config SmtpConfig) Mailer {
	return Mailer{config: config}
}

// New returns a Mailer when recipients are configured and a Nop otherwise.
func New(config SmtpConfig) Notifier {
	if config.Server == "" || len(config.Recipients) == 0 {
		return Nop{}
	}
	return NewMailer(config)
}

func (m Mailer) NotifyFatal(ctx context.Context, alert Alert) error {
	_, span := tracer.Start(ctx, "notify:NotifyFatal")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("eCourts Acquisition <%s>", m.config.EmailAddress)
	mail.To = m.config.Recipients
	mail.Subject = fmt.Sprintf("Acquisition of %s failed", alert.CaseID)

	body := fmt.Sprintf(`Acquisition of case %s (cutoff %s) gave up after %d attempts.

Reason: %s`, alert.CaseID, alert.Cutoff, alert.Attempts, alert.Reason)
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
