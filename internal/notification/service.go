// Package notification sends email to tenants, currently payment
// reminders composed from the missed-payment calculation.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bher20/hausmeister/internal/billing"
	"github.com/bher20/hausmeister/internal/storage"
)

type Service struct {
	storage storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{storage: s}
}

func (s *Service) GetConfig(ctx context.Context) (*storage.EmailConfig, error) {
	return s.storage.GetEmailConfig(ctx)
}

func (s *Service) SaveConfig(ctx context.Context, cfg storage.EmailConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return s.storage.SaveEmailConfig(ctx, cfg)
}

// SendEmail delivers one message through the configured provider.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return errors.New("email not configured or disabled")
	}
	return send(cfg, to, subject, body)
}

// TestConfig sends a probe mail with the given (possibly unsaved) config.
func (s *Service) TestConfig(ctx context.Context, cfg storage.EmailConfig, to string) error {
	return send(&cfg, to, "Hausmeister Test", "This is a test email from Hausmeister.")
}

// SendPaymentReminder mails a tenant the outcome of a missed-payment
// check. Callers should only invoke it when the result actually shows
// arrears; a zero result returns an error instead of a confusing mail.
func (s *Service) SendPaymentReminder(ctx context.Context, tenant storage.Tenant, result billing.MissedPaymentsResult) error {
	if tenant.Email == "" {
		return fmt.Errorf("tenant %s has no email address", tenant.ID)
	}
	if result.TotalAmount <= 0 {
		return errors.New("nothing outstanding, refusing to send a reminder")
	}

	subject := fmt.Sprintf("Zahlungserinnerung: %.2f EUR offen", result.TotalAmount)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hallo %s,</p>", tenant.Name)
	fmt.Fprintf(&b, "<p>nach unseren Unterlagen sind derzeit <b>%.2f EUR</b> offen", result.TotalAmount)
	fmt.Fprintf(&b, " (%d Monat(e) Miete, %d Monat(e) Nebenkosten).</p>", result.RentMonths, result.PrepayMonths)
	if len(result.Details) > 0 {
		b.WriteString("<ul>")
		for _, d := range result.Details {
			kind := "Miete"
			if d.Kind == "nebenkosten" {
				kind = "Nebenkosten"
			}
			fmt.Fprintf(&b, "<li>%s: %s %.2f EUR</li>", d.Month, kind, d.Amount)
		}
		b.WriteString("</ul>")
	}
	b.WriteString("<p>Bitte überweisen Sie den offenen Betrag. Bei Fragen melden Sie sich gerne.</p>")

	return s.SendEmail(ctx, tenant.Email, subject, b.String())
}
