// Package config содержит логику чтения конфигурации сервиса приёма заказов.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса приёма заказов.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	CompanyName string `env:"COMPANY_NAME"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD,unset"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	SMTPTLS      string        `env:"SMTP_TLS"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT"`

	ShopAddress      string `env:"SHOP_ADDRESS"`
	NotifyCustomer   bool   `env:"NOTIFY_CUSTOMER"`
	RequireDesign    bool   `env:"REQUIRE_DESIGN"`
	DeliveryLeadDays int    `env:"DELIVERY_LEAD_DAYS"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.CompanyName, "company", "FlexyLabel", "company name printed on the summary")
	flag.StringVar(&cfg.SMTPHost, "smtp-host", "localhost", "SMTP server host")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", 465, "SMTP server port")
	flag.StringVar(&cfg.SMTPUsername, "smtp-user", "", "SMTP username")
	flag.StringVar(&cfg.SMTPFrom, "from", "orders@flexylabel.local", "sender address")
	flag.StringVar(&cfg.SMTPTLS, "smtp-tls", "", "SMTP TLS mode: ssl or starttls (derived from port when empty)")
	flag.DurationVar(&cfg.SMTPTimeout, "smtp-timeout", 15*time.Second, "SMTP dial and send timeout")
	flag.StringVar(&cfg.ShopAddress, "shop", "", "production workshop address")
	flag.BoolVar(&cfg.NotifyCustomer, "notify-customer", true, "send a copy of the summary to the customer")
	flag.BoolVar(&cfg.RequireDesign, "require-design", true, "reject orders without a design file")
	flag.IntVar(&cfg.DeliveryLeadDays, "lead-days", 7, "default delivery lead time in days")
	flag.Int64Var(&cfg.MaxUploadBytes, "max-upload", 20<<20, "maximum request size in bytes")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ShopAddress == "" {
		return errors.New("shop address is required (SHOP_ADDRESS or -shop)")
	}
	switch c.SMTPTLS {
	case "", "ssl", "starttls":
	default:
		return fmt.Errorf("unknown SMTP TLS mode %q", c.SMTPTLS)
	}
	if c.SMTPPort <= 0 {
		return fmt.Errorf("invalid SMTP port %d", c.SMTPPort)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size %d", c.MaxUploadBytes)
	}
	return nil
}
