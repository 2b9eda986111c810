package config

import "os"

type Config struct {
	// Port the HTTP server listens on, without the colon.
	Port string
	// DBDriver is one of "memory", "sqlite" or "postgres".
	DBDriver string
	// DBDSN is the driver-specific connection string or file path.
	DBDSN string
	// AutoMigrate runs pending schema migrations on startup when "true".
	AutoMigrate bool
	// CronSchedule is the cron expression for the missed-payments
	// reminder job.
	CronSchedule string
	// AuthEnabled turns on token authentication for the API.
	AuthEnabled bool
	// AlertWebhookURL receives JSON alerts for failed scheduled jobs.
	// Alerting is disabled when empty.
	AlertWebhookURL string
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		DBDriver:        envOr("HAUSMEISTER_DB_DRIVER", "sqlite"),
		DBDSN:           envOr("HAUSMEISTER_DB_DSN", "hausmeister.db"),
		AutoMigrate:     os.Getenv("HAUSMEISTER_AUTO_MIGRATE") == "true",
		CronSchedule:    envOr("HAUSMEISTER_CRON_SCHEDULE", "0 8 1 * *"),
		AuthEnabled:     os.Getenv("HAUSMEISTER_AUTH_ENABLED") == "true",
		AlertWebhookURL: os.Getenv("HAUSMEISTER_ALERT_WEBHOOK_URL"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
