package notification

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/hausmeister/internal/storage"
)

func send(cfg *storage.EmailConfig, to, subject, body string) error {
	switch cfg.Provider {
	case "smtp", "gmail":
		return sendSMTP(cfg, to, subject, body)
	case "sendgrid":
		return sendSendgrid(cfg, to, subject, body)
	case "resend":
		return sendResend(cfg, to, subject, body)
	default:
		return fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func sendSMTP(cfg *storage.EmailConfig, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s\r\n", to, subject, body))

	switch cfg.Encryption {
	case "ssl":
		// Implicit TLS from the first byte.
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return err
		}
		defer conn.Close()

		c, err := smtp.NewClient(conn, cfg.Host)
		if err != nil {
			return err
		}
		defer c.Quit()
		return smtpSubmit(c, cfg, to, msg)
	case "tls":
		// STARTTLS upgrade after the plain handshake.
		c, err := smtp.Dial(addr)
		if err != nil {
			return err
		}
		defer c.Quit()

		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return err
			}
		}
		return smtpSubmit(c, cfg, to, msg)
	default:
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		return smtp.SendMail(addr, auth, cfg.FromAddress, []string{to}, msg)
	}
}

func smtpSubmit(c *smtp.Client, cfg *storage.EmailConfig, to string, msg []byte) error {
	if cfg.Username != "" && cfg.Password != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func sendSendgrid(cfg *storage.EmailConfig, to, subject, body string) error {
	from := mail.NewEmail(cfg.FromName, cfg.FromAddress)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, body)
	resp, err := sendgrid.NewSendClient(cfg.APIKey).Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func sendResend(cfg *storage.EmailConfig, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		"to":      to,
		"subject": subject,
		"html":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, string(b))
	}
	return nil
}
