package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"animerelay/validation"
)

const DefaultTMDBBaseURL = "https://api.themoviedb.org/3"

var ErrMissingAPIKey = errors.New("TMDB_API_KEY environment variable is required")

type Config struct {
	TMDB    TMDBConfig    `koanf:"tmdb"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
	Breaker BreakerConfig `koanf:"breaker"`
}

type TMDBConfig struct {
	APIKey  string        `koanf:"api_key" validate:"required"`
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address for http.Server
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// BreakerConfig controls the circuit breaker in front of TMDb.
// FailureThreshold consecutive failures open the circuit for OpenTimeout.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gt=0"`
	HalfOpenMax      uint32        `koanf:"half_open_max" validate:"min=1"`
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return ErrMissingAPIKey
	}
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
