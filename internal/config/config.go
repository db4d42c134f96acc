package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CollectorMode string
	UserAgent     string
	BaseURL       string

	ListingTimeout  time.Duration
	CommentsTimeout time.Duration

	// Output
	DataDir      string
	OutputPrefix string
	HistoryDB    string // empty disables run history

	// HTTP surface
	Port        string
	RunInterval time.Duration
	RunBurst    int

	// Authenticated API mode only
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var parseErrs []error
	cfg := &Config{
		CollectorMode:   getEnv("COLLECTOR_MODE", "public"),
		UserAgent:       getEnv("REDDIT_USER_AGENT", "webcrawler/0.1"),
		BaseURL:         getEnv("REDDIT_BASE_URL", "https://www.reddit.com"),
		ListingTimeout:  getEnvDuration("LISTING_TIMEOUT", 20*time.Second, &parseErrs),
		CommentsTimeout: getEnvDuration("COMMENTS_TIMEOUT", 25*time.Second, &parseErrs),
		DataDir:         getEnv("DATA_DIR", "data"),
		OutputPrefix:    getEnv("OUTPUT_PREFIX", "reddit"),
		HistoryDB:       os.Getenv("HISTORY_DB"),
		Port:            getEnv("PORT", "8080"),
		RunInterval:     getEnvDuration("RUN_INTERVAL", 2*time.Second, &parseErrs),
		RunBurst:        getEnvInt("RUN_BURST", 1, &parseErrs),
		ClientID:        os.Getenv("REDDIT_CLIENT_ID"),
		ClientSecret:    os.Getenv("REDDIT_CLIENT_SECRET"),
		Username:        os.Getenv("REDDIT_USERNAME"),
		Password:        os.Getenv("REDDIT_PASSWORD"),
	}
	if err := errors.Join(parseErrs...); err != nil {
		return nil, err
	}
	if _, ok := os.LookupEnv("HISTORY_DB"); !ok {
		cfg.HistoryDB = cfg.DataDir + "/runs.db"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CollectorMode {
	case "public", "mock":
	case "api":
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for api mode")
		}
	default:
		return fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'api', 'public', or 'mock')", c.CollectorMode)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("REDDIT_USER_AGENT is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.ListingTimeout <= 0 || c.CommentsTimeout <= 0 {
		return fmt.Errorf("LISTING_TIMEOUT and COMMENTS_TIMEOUT must be positive")
	}
	if c.RunBurst < 1 {
		return fmt.Errorf("RUN_BURST must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue when key is unset and records a parse error
// when it is set but malformed.
func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return duration
}
