// Package config loads proxy configuration from defaults, an optional
// YAML file, and FOOTSTATS_* environment variables. The library
// packages stay configuration-free; only binaries read this.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pitchside/footstats-client/pkg/cache"
	"github.com/pitchside/footstats-client/pkg/client"
)

// Config holds every tunable of the footstats proxy.
type Config struct {
	Server struct {
		// Addr is the listen address, e.g. ":8080".
		Addr string `mapstructure:"addr"`

		// ShutdownTimeout bounds the graceful drain on SIGINT/SIGTERM.
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	API struct {
		// Key authenticates against API-Football. Required.
		Key string `mapstructure:"key"`

		// BaseURL overrides the upstream host.
		BaseURL string `mapstructure:"base_url"`

		// RapidAPIHost switches to the RapidAPI gateway headers.
		RapidAPIHost string `mapstructure:"rapidapi_host"`

		// Timeout bounds each request attempt.
		Timeout time.Duration `mapstructure:"timeout"`

		// MaxRetries caps additional attempts after the first.
		MaxRetries int `mapstructure:"max_retries"`

		// BaseDelay and MaxDelay bound the backoff between attempts.
		BaseDelay time.Duration `mapstructure:"base_delay"`
		MaxDelay  time.Duration `mapstructure:"max_delay"`

		// BreakerFailures enables the circuit breaker when > 0: that many
		// consecutive failures open it.
		BreakerFailures int `mapstructure:"breaker_failures"`
	} `mapstructure:"api"`

	Cache struct {
		// CleanupInterval is the expired-entry sweep period for every
		// policy cache. Negative disables the sweeps.
		CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

		// LiveTTL and CurrentTTL override the freshness windows of the
		// two volatile policies when > 0.
		LiveTTL    time.Duration `mapstructure:"live_ttl"`
		CurrentTTL time.Duration `mapstructure:"current_ttl"`

		// MaxEntries overrides every policy's entry bound when > 0.
		MaxEntries int `mapstructure:"max_entries"`
	} `mapstructure:"cache"`

	Log struct {
		// Level is the minimum log level (debug, info, warn, error).
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads configuration from the given file (or ./footstats.yaml when
// path is empty, if present), environment variables prefixed FOOTSTATS_,
// and built-in defaults, in increasing priority of default < file < env.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("api.key", "")
	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.rapidapi_host", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.base_delay", "1s")
	v.SetDefault("api.max_delay", "30s")
	v.SetDefault("api.breaker_failures", 0)
	v.SetDefault("cache.cleanup_interval", "1m")
	v.SetDefault("cache.live_ttl", "0s")
	v.SetDefault("cache.current_ttl", "0s")
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("footstats")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FOOTSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A named file must exist; the default search may come up empty.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration problems a running proxy cannot
// tolerate.
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return errors.New("api key is required (set FOOTSTATS_API_KEY)")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr must not be empty")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api max_retries must not be negative (got %d)", c.API.MaxRetries)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive (got %v)", c.API.Timeout)
	}
	return nil
}

// ClientConfig maps the loaded settings onto a client configuration.
func (c *Config) ClientConfig(logger zerolog.Logger) client.Config {
	retry := client.DefaultRetryConfig()
	retry.MaxRetries = c.API.MaxRetries
	if c.API.BaseDelay > 0 {
		retry.BaseDelay = c.API.BaseDelay
	}
	if c.API.MaxDelay > 0 {
		retry.MaxDelay = c.API.MaxDelay
	}

	cfg := client.Config{
		APIKey:       c.API.Key,
		BaseURL:      c.API.BaseURL,
		RapidAPIHost: c.API.RapidAPIHost,
		Timeout:      c.API.Timeout,
		Retry:        retry,
		Logger:       logger,
	}
	if c.API.BreakerFailures > 0 {
		breaker := client.DefaultBreakerConfig()
		breaker.ConsecutiveFailures = uint32(c.API.BreakerFailures)
		cfg.Breaker = breaker
	}
	return cfg
}

// Policies returns the cache policy set with any configured overrides
// applied.
func (c *Config) Policies() []cache.Policy {
	policies := cache.Policies()
	for i := range policies {
		switch policies[i].Name {
		case cache.PolicyLive.Name:
			if c.Cache.LiveTTL > 0 {
				policies[i].TTL = c.Cache.LiveTTL
			}
		case cache.PolicyCurrent.Name:
			if c.Cache.CurrentTTL > 0 {
				policies[i].TTL = c.Cache.CurrentTTL
			}
		}
		if c.Cache.MaxEntries > 0 {
			policies[i].MaxEntries = c.Cache.MaxEntries
		}
	}
	return policies
}
