package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the ingestion retry loop. MaxFailures is the number of
// consecutive feed failures tolerated before a run aborts as fatal.
const (
	DefaultMaxFailures    = 5
	DefaultRetryBaseDelay = 5 * time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
	DefaultSascarURL      = "https://sasintegra.sascar.com.br/SasIntegra/SasIntegraWSService"
)

// Config holds all runtime configuration, loaded once at startup and
// passed by value to the components that need it.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	// Sascar feed credentials and endpoint
	SascarUser string
	SascarPass string
	SascarURL  string

	// Ingestion retry tuning
	MaxFailures    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Load reads configuration from the environment (and a .env file when
// present) and validates the numeric fields.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments use plain env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", ":8080"),
		DBPath:         getEnv("DB_PATH", "./data/loglive.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		SascarUser:     getEnv("SASCAR_USER", ""),
		SascarPass:     getEnv("SASCAR_PASS", ""),
		SascarURL:      getEnv("SASCAR_URL", DefaultSascarURL),
		MaxFailures:    DefaultMaxFailures,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryMaxDelay:  DefaultRetryMaxDelay,
	}

	if v := os.Getenv("SYNC_MAX_FAILURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SYNC_MAX_FAILURES %q", v)
		}
		cfg.MaxFailures = n
	}
	if v := os.Getenv("SYNC_RETRY_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SYNC_RETRY_BASE_DELAY %q", v)
		}
		cfg.RetryBaseDelay = d
	}
	if v := os.Getenv("SYNC_RETRY_MAX_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SYNC_RETRY_MAX_DELAY %q", v)
		}
		cfg.RetryMaxDelay = d
	}

	return cfg, nil
}

// RequireSascar checks that the feed credentials are configured. Only
// commands that talk to the vendor feed call this; the read-only API
// server does not need credentials.
func (c *Config) RequireSascar() error {
	if c.SascarUser == "" || c.SascarPass == "" {
		return errors.New("SASCAR_USER and SASCAR_PASS must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
