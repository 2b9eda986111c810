// Package alerting pushes webhook notifications when scheduled jobs
// fail, so a broken reminder run does not go unnoticed until the next
// billing period.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	// Enabled controls whether alerts are sent
	Enabled bool
	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultAlertConfig returns config from environment variables.
func DefaultAlertConfig() AlertConfig {
	cfg := AlertConfig{
		WebhookURL:  os.Getenv("HAUSMEISTER_ALERT_WEBHOOK_URL"),
		WebhookType: os.Getenv("HAUSMEISTER_ALERT_WEBHOOK_TYPE"),
		Timeout:     10 * time.Second,
	}
	cfg.Enabled = cfg.WebhookURL != ""

	if cfg.WebhookType == "" {
		switch {
		case strings.Contains(cfg.WebhookURL, "slack.com"):
			cfg.WebhookType = "slack"
		case strings.Contains(cfg.WebhookURL, "discord.com"):
			cfg.WebhookType = "discord"
		default:
			cfg.WebhookType = "generic"
		}
	}

	return cfg
}

// Alerter sends alerts to a configured webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
}

func NewAlerter(cfg AlertConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// JobAlert describes one failed (or partially failed) scheduled run.
type JobAlert struct {
	JobName   string
	Error     string
	Duration  time.Duration
	Failures  []TenantFailure
	Timestamp time.Time
}

// TenantFailure is one tenant the job could not process, e.g. a
// reminder that could not be delivered.
type TenantFailure struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	Error      string `json:"error"`
}

// SendJobAlert posts the alert. Disabled alerting is a silent no-op.
func (a *Alerter) SendJobAlert(ctx context.Context, alert JobAlert) error {
	if !a.cfg.Enabled {
		return nil
	}

	var payload []byte
	var err error
	switch a.cfg.WebhookType {
	case "slack":
		payload, err = a.buildSlackPayload(alert)
	case "discord":
		payload, err = a.buildDiscordPayload(alert)
	default:
		payload, err = a.buildGenericPayload(alert)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Printf("alerting: sent alert for job %s", alert.JobName)
	return nil
}

func (a *Alerter) buildSlackPayload(alert JobAlert) ([]byte, error) {
	var failed strings.Builder
	for _, f := range alert.Failures {
		failed.WriteString(fmt.Sprintf("• *%s* (%s): %s\n", f.TenantName, f.TenantID, f.Error))
	}

	sections := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]string{
				"type": "plain_text",
				"text": fmt.Sprintf(":warning: Job Alert: %s", alert.JobName),
			},
		},
		{
			"type": "section",
			"fields": []map[string]string{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Error:*\n%s", alert.Error)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
			},
		},
	}
	if failed.Len() > 0 {
		sections = append(sections, map[string]interface{}{
			"type": "section",
			"text": map[string]string{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Failed Tenants:*\n%s", failed.String()),
			},
		})
	}

	return json.Marshal(map[string]interface{}{"blocks": sections})
}

func (a *Alerter) buildDiscordPayload(alert JobAlert) ([]byte, error) {
	var failed strings.Builder
	for _, f := range alert.Failures {
		failed.WriteString(fmt.Sprintf("• **%s** (%s): %s\n", f.TenantName, f.TenantID, f.Error))
	}

	fields := []map[string]interface{}{
		{"name": "Error", "value": alert.Error, "inline": false},
		{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
	}
	if failed.Len() > 0 {
		fields = append(fields, map[string]interface{}{
			"name": "Failed Tenants", "value": failed.String(), "inline": false,
		})
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":     fmt.Sprintf("Job Alert: %s", alert.JobName),
				"color":     16711680,
				"fields":    fields,
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildGenericPayload(alert JobAlert) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"alert_type":  "scheduled_job_failure",
		"job_name":    alert.JobName,
		"error":       alert.Error,
		"duration_ms": alert.Duration.Milliseconds(),
		"timestamp":   alert.Timestamp.Format(time.RFC3339),
		"failures":    alert.Failures,
	})
}
