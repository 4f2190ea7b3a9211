package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"storefront"`
	ServerPort  int    `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	JWTAccessSecret string        `envconfig:"JWT_SECRET"`
	AuthHTTPURL     string        `envconfig:"AUTH_URL"`
	AuthTimeout     time.Duration `envconfig:"AUTH_TIMEOUT" default:"5s"`

	RedisURL string `envconfig:"REDIS_URL"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	ESURL      string `envconfig:"ES_URL"`
	ESUser     string `envconfig:"ES_USER"`
	ESPassword string `envconfig:"ES_PASSWORD"`
	ESIndex    string `envconfig:"ES_INDEX" default:"items"`

	Currency string `envconfig:"CURRENCY" default:"usd"`

	StripeAPIKey string `envconfig:"STRIPE_API_KEY"`

	SquareAccessToken string `envconfig:"SQUARE_ACCESS_TOKEN"`
	SquareEnvironment string `envconfig:"SQUARE_ENVIRONMENT" default:"sandbox"`
	SquareLocationID  string `envconfig:"SQUARE_LOCATION_ID"`

	RefundRateLimit  int64         `envconfig:"REFUND_RATE_LIMIT" default:"5"`
	RefundRateWindow time.Duration `envconfig:"REFUND_RATE_WINDOW" default:"1m"`

	UserLockTTL time.Duration `envconfig:"USER_LOCK_TTL" default:"15s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("notice: .env not loaded: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	cfg.KafkaBrokers = CSV(strings.Join(cfg.KafkaBrokers, ","))
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	return cfg, nil
}

func (c Config) StripeEnabled() bool { return c.StripeAPIKey != "" }

func (c Config) SquareEnabled() bool {
	return c.SquareAccessToken != "" && c.SquareLocationID != ""
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
