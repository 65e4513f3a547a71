package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerConfig
	DatabaseConfig
	ResendConfig
	QueueConfig
	LoggerConfig
}

type ServerConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
	// BaseURL is the backend origin for unsubscribe/verify links; SiteURL
	// is the frontend origin for read-more links.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	SiteURL string `envconfig:"SITE_URL" default:"http://localhost:5173"`
}

type DatabaseConfig struct {
	URL            string `envconfig:"DATABASE_URL" required:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

type ResendConfig struct {
	APIKey        string `envconfig:"RESEND_API_KEY"`
	FromEmail     string `envconfig:"NEWSLETTER_FROM_EMAIL"`
	WebhookSecret string `envconfig:"RESEND_WEBHOOK_SECRET"`
}

type QueueConfig struct {
	// AMQPURL switches campaign dispatch from the in-process queue to
	// RabbitMQ consumed by cmd/worker. Empty means in-process.
	AMQPURL   string `envconfig:"AMQP_URL"`
	QueueName string `envconfig:"AMQP_QUEUE_NAME" default:"campaign_jobs"`
}

type LoggerConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}
