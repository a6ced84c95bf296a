package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime settings of the API server. Everything has a
// development-friendly default so the server starts with no env at all.
type Config struct {
	HTTPPort     string        `envconfig:"HTTP_PORT" default:"8008"`
	GinMode      string        `envconfig:"GIN_MODE" default:"debug"`
	AllowOrigin  string        `envconfig:"CORS_ALLOW_ORIGIN" default:"*"`
	ListCacheTTL time.Duration `envconfig:"LIST_CACHE_TTL" default:"5s"`
}

const namespace = "TODO"

// Load reads the configuration from TODO_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(namespace, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &cfg, nil
}
