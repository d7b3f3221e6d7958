package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"APP_ADDR" envDefault:":8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret    string `env:"JWT_SECRET"`
	AESSecretKey string `env:"AES_SECRET_KEY"`

	Kafka Kafka
	Feed  Feed
	Email Email

	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

type Kafka struct {
	Brokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	ChangeTopic     string   `env:"EMPLOYEE_CHANGE_TOPIC" envDefault:"employee-changes"`
	DeadLetterTopic string   `env:"EMPLOYEE_CHANGE_DLQ_TOPIC" envDefault:"employee-changes-dlq"`
	ConsumerGroup   string   `env:"NOTIFICATION_CONSUMER_GROUP" envDefault:"notification-dispatcher"`
	MaxAttempts     int      `env:"NOTIFICATION_MAX_ATTEMPTS" envDefault:"5"`
}

type Feed struct {
	BatchSize    int           `env:"FEED_BATCH_SIZE" envDefault:"100"`
	PollInterval time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"1s"`
}

type Email struct {
	Enabled      bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	From         string `env:"HR_ADMIN_EMAIL_FROM" envDefault:"no-reply@example.com"`
	AdminAddress string `env:"HR_ADMIN_EMAIL"`
}

func Load(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.AESSecretKey) == "" {
		return fmt.Errorf("AES_SECRET_KEY is required for field encryption")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.Kafka.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFICATION_MAX_ATTEMPTS must be positive")
	}
	if c.Feed.BatchSize <= 0 {
		return fmt.Errorf("FEED_BATCH_SIZE must be positive")
	}
	if c.Email.Enabled && c.Email.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
