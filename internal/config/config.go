package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Env            string   `env:"ENV" envDefault:"development"`
	Port           string   `env:"PORT" envDefault:"3000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	AmoCRMAccessToken   string  `env:"AMOCRM_ACCESS_TOKEN"`
	AmoCRMSubdomain     string  `env:"AMOCRM_SUBDOMAIN"`
	SuccessfulStatusIDs []int64 `env:"SUCCESSFUL_STATUS_IDS" envDefault:"142,147,149" envSeparator:","`

	GoogleSpreadsheetID string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetRange    string `env:"GOOGLE_SHEET_RANGE" envDefault:"Лист1!A:H"`
	GoogleClientEmail   string `env:"GOOGLE_CLIENT_EMAIL"`
	GooglePrivateKey    string `env:"GOOGLE_PRIVATE_KEY"`

	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	PipelineCacheTTL time.Duration `env:"PIPELINE_CACHE_TTL" envDefault:"15m"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	SMTPHost    string `env:"SMTP_HOST"`
	SMTPPort    int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser    string `env:"SMTP_USER"`
	SMTPPass    string `env:"SMTP_PASS"`
	MailFrom    string `env:"MAIL_FROM"`
	NotifyEmail string `env:"NOTIFY_EMAIL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Keys pasted into .env files carry literal \n sequences.
	cfg.GooglePrivateKey = strings.ReplaceAll(cfg.GooglePrivateKey, `\n`, "\n")

	if len(cfg.SuccessfulStatusIDs) == 0 {
		return nil, fmt.Errorf("at least one successful status id is required")
	}

	return &cfg, nil
}

// SuccessfulStatusSet returns the configured "won" status ids as a set.
func (c *Config) SuccessfulStatusSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(c.SuccessfulStatusIDs))
	for _, id := range c.SuccessfulStatusIDs {
		set[id] = struct{}{}
	}
	return set
}
