package config

import (
	"fmt"

	"github.com/llegapo/scraper/internal/utils/headers"
	urlutil "github.com/llegapo/scraper/internal/utils/url"
	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if err := urlutil.ValidateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if err := urlutil.ValidateURL(c.ProbeURL); err != nil {
		return fmt.Errorf("probe url: %w", err)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.MarkerTimeout <= 0 {
		return fmt.Errorf("marker timeout must be > 0")
	}
	if c.NavigationRetries < 0 {
		return fmt.Errorf("navigation retries must be >= 0")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if _, err := headers.ParseHeaders(c.Headers); err != nil {
		return err
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must be >= 0")
	}
	if c.MetroMaxLines < 0 {
		return fmt.Errorf("metro max lines must be >= 0")
	}

	switch c.CacheBackend {
	case CacheNone:
	case CacheMemory:
		if c.CacheMaxSizeBytes <= 0 {
			return fmt.Errorf("cache max size must be > 0")
		}
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis cache requires %sREDIS_ADDR", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	if c.DeviationsTTL < 0 || c.MetroStatusTTL < 0 || c.TarifasTTL < 0 {
		return fmt.Errorf("cache ttl must be >= 0")
	}
	return nil
}
