// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/llegapo/scraper/internal/api"
	"github.com/llegapo/scraper/internal/browser"
	"github.com/llegapo/scraper/internal/cache"
	"github.com/llegapo/scraper/internal/config"
	"github.com/llegapo/scraper/internal/diagnostics"
	"github.com/llegapo/scraper/internal/proxy"
	"github.com/llegapo/scraper/internal/ratelimit"
	"github.com/llegapo/scraper/internal/scrape"
	"github.com/llegapo/scraper/internal/utils/headers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Cache       cache.Cache
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.ProxyPool
	Strategy    browser.LaunchStrategy
	Launcher    *browser.ChromeLauncher
	Runner      *scrape.Runner
	Sources     api.Sources
	Prober      *diagnostics.Prober
	startTime   time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the result cache for the configured backend
//   - Creates the rate limiter for domain-based request throttling
//   - Selects the browser launch strategy once for the process
//   - Creates the scrape runner, its sources and the diagnostics prober
//
// No browser is started here; each scrape launches its own.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ConfigureLogging(cfg)

	resultCache, err := newCache(cfg)
	if err != nil {
		return nil, err
	}

	rateLimiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	log.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	var proxies *proxy.ProxyPool
	if len(cfg.Proxies) > 0 {
		proxies = proxy.NewProxyPool(cfg.Proxies, proxy.DefaultCooldown)
		log.Debug().Int("proxies", proxies.Len()).Msg("Proxy pool initialized")
	}

	strategy := browser.SelectStrategy(browser.StrategyOptions{
		Production: cfg.Production(),
		ChromePath: cfg.ChromePath,
		PackageURL: cfg.ChromiumPackURL,
		CacheDir:   cfg.BrowserCacheDir,
	})
	logStrategy(strategy)

	launcher := browser.NewChromeLauncher(strategy, browser.LauncherOptions{
		Headless: cfg.Headless,
		Proxies:  proxies,
	})

	extraHeaders, err := headers.ParseHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}

	runner := scrape.NewRunner(launcher, rateLimiter, resultCache, scrape.Options{
		BaseURL:        cfg.BaseURL,
		SessionTimeout: cfg.NavigationTimeout,
		UserAgent:      cfg.UserAgent,
		Viewport:       browser.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
		Headers:        extraHeaders,
		Navigate: browser.NavigateOptions{
			Timeout: cfg.NavigationTimeout,
			Retries: retriesOption(cfg.NavigationRetries),
		},
		Marker: browser.WaitOptions{Timeout: cfg.MarkerTimeout},
	})

	sources := api.Sources{
		Deviations:  scrape.DeviationsSource(cacheTTL(cfg, cfg.DeviationsTTL)),
		MetroStatus: scrape.MetroStatusSource(cacheTTL(cfg, cfg.MetroStatusTTL), cfg.MetroMaxLines),
		Tarifas:     scrape.TarifasSource(cacheTTL(cfg, cfg.TarifasTTL)),
	}

	prober := diagnostics.NewProber(runner, cfg.ProbeURL, diagnostics.Environment{
		Production:        cfg.Production(),
		Env:               cfg.Env,
		Strategy:          strategy.Name(),
		Headless:          cfg.Headless,
		NavigationTimeout: cfg.NavigationTimeout.String(),
		ChromePath:        cfg.ChromePath,
		PackageURL:        cfg.ChromiumPackURL,
	})

	app := &Application{
		Config:      cfg,
		Cache:       resultCache,
		RateLimiter: rateLimiter,
		Proxies:     proxies,
		Strategy:    strategy,
		Launcher:    launcher,
		Runner:      runner,
		Sources:     sources,
		Prober:      prober,
		startTime:   time.Now(),
	}

	log.Info().
		Str("env", cfg.Env).
		Str("strategy", strategy.Name()).
		Str("cache", cfg.CacheBackend).
		Msg("Application initialized successfully")
	return app, nil
}

// ConfigureLogging sets the global zerolog level and writer from cfg
func ConfigureLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()
}

// Handlers returns the HTTP handlers wired to the application
func (a *Application) Handlers() *api.Handlers {
	return api.NewHandlers(a.Runner, a.Sources, a.Prober)
}

// Close gracefully shuts down the application and all its resources.
// Browser sessions are owned by requests and are already closed by the time
// the server has drained, so only shared infrastructure is released here.
func (a *Application) Close(ctx context.Context) error {
	log.Info().Msg("Shutting down application")

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing cache")
		}
	}

	log.Info().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return ctx.Err()
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		log.Debug().Int64("max_size_bytes", cfg.CacheMaxSizeBytes).Msg("Memory cache initialized")
		return cache.NewMemoryCache(cfg.CacheMaxSizeBytes), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		log.Debug().Str("address", cfg.RedisAddr).Msg("Redis cache initialized")
		return rc, nil
	default:
		return cache.Noop{}, nil
	}
}

// cacheTTL disables per-source caching when no cache backend is configured
func cacheTTL(cfg *config.Config, ttl time.Duration) time.Duration {
	if cfg.CacheBackend == config.CacheNone {
		return 0
	}
	return ttl
}

// retriesOption maps a configured retry count to NavigateOptions.Retries,
// where zero means "use the default" and a negative value disables retries.
func retriesOption(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func logStrategy(strategy browser.LaunchStrategy) {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	event := log.Debug().Str("strategy", strategy.Name())
	if local, ok := strategy.(browser.Local); ok {
		path := local.ExecPath
		if path == "" {
			path = browser.FindChrome()
		}
		if path != "" {
			event = event.Str("chrome", path).Str("version", browser.ChromeVersion(path))
		}
	}
	event.Msg("Launch strategy selected")
}
