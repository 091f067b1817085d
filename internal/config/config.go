package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds client configuration loaded from environment variables.
type Config struct {
	APIBaseURL        string `envconfig:"LESZMON_API_URL" default:"http://localhost:8080"`
	Environment       string `envconfig:"LESZMON_ENV" default:"development"`
	TokenPath         string `envconfig:"LESZMON_TOKEN_PATH" default:""`
	CacheTTLSeconds   int    `envconfig:"LESZMON_CACHE_TTL_SECONDS" default:"300"`
	RequestTimeoutSec int    `envconfig:"LESZMON_REQUEST_TIMEOUT_SECONDS" default:"30"`
}

// Load reads configuration from the environment, after loading a .env file
// if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CacheTTL returns the query cache freshness window.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns the HTTP client timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
