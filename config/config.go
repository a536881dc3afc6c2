package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds every environment value the service reads. Parsed once at
// startup; missing required values fail fast with the variable name.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`

	DatabaseURL string `env:"DB_URL,required"`
	AppBaseURL  string `env:"APP_BASE_URL,required"`

	JWTSecret string `env:"JWT_SECRET,required"`

	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Identity Identity `envPrefix:"IDENTITY_"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`
}

type Identity struct {
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	// .env is a development convenience; in production the variables come
	// from the host environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	return cfg, nil
}
