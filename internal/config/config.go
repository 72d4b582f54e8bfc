package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/llegapo/scraper/internal/utils/headers"
	"github.com/spf13/cobra"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "LLEGAPO_"

// Config holds application configuration values
type Config struct {
	Env string

	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP API
	ListenAddr string

	// Target site
	BaseURL  string
	ProbeURL string

	// Browser
	Headless          bool
	UserAgent         string
	ChromePath        string
	ChromiumPackURL   string
	BrowserCacheDir   string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	NavigationRetries int
	MarkerTimeout     time.Duration
	Proxies           []string
	Headers           []string // "Key: Value" entries sent with every page request

	// Rate Limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Caching
	CacheBackend      string
	CacheMaxSizeBytes int64
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DeviationsTTL     time.Duration
	MetroStatusTTL    time.Duration
	TarifasTTL        time.Duration

	// Extraction
	MetroMaxLines int
}

// Production reports whether the service runs in the production environment
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Defaults returns a Config populated with the default values
func Defaults() *Config {
	return &Config{
		Env:               DefaultEnv,
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		ListenAddr:        DefaultListenAddr,
		BaseURL:           DefaultBaseURL,
		ProbeURL:          DefaultProbeURL,
		Headless:          DefaultHeadless,
		UserAgent:         DefaultUserAgent,
		BrowserCacheDir:   filepath.Join(os.TempDir(), "llegapo-chromium"),
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		NavigationTimeout: DefaultNavigationTimeout,
		NavigationRetries: DefaultNavigationRetries,
		MarkerTimeout:     DefaultMarkerTimeout,
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
		CacheBackend:      DefaultCacheBackend,
		CacheMaxSizeBytes: DefaultCacheMaxSizeBytes,
		DeviationsTTL:     DefaultDeviationsTTL,
		MetroStatusTTL:    DefaultMetroStatusTTL,
		TarifasTTL:        DefaultTarifasTTL,
	}
}

// Load builds a Config by combining defaults, an optional .env file,
// environment variables and CLI flags, in increasing order of precedence.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Defaults()

	envFile := DefaultEnvFile
	if cmd != nil {
		if f := cmd.Flags().Lookup("env-file"); f != nil && f.Changed {
			envFile = f.Value.String()
		}
	}
	// godotenv never overrides variables already present in the environment
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := applyFlags(cfg, cmd); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

type lookupFunc func(string) (string, bool)

// envReader collects the first parse error so applyEnv reads linearly
type envReader struct {
	lookup lookupFunc
	err    error
}

func (r *envReader) get(name string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *envReader) fail(name, v string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, v, err)
	}
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *envReader) boolean(name string, dst *bool) {
	if v, ok := r.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = b
	}
}

func (r *envReader) integer(name string, dst *int) {
	if v, ok := r.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) int64(name string, dst *int64) {
	if v, ok := r.get(name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) float(name string, dst *float64) {
	if v, ok := r.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	if v, ok := r.get(name); ok {
		d, err := parseDuration(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = d
	}
}

func (r *envReader) list(name string, dst *[]string, split func(string) []string) {
	if v, ok := r.get(name); ok {
		*dst = split(v)
	}
}

// applyEnv overrides cfg from LLEGAPO_* variables and PORT
func applyEnv(cfg *Config, lookup lookupFunc) error {
	r := &envReader{lookup: lookup}

	r.str("ENV", &cfg.Env)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.boolean("JSON_LOG", &cfg.JSONLog)
	r.str("BASE_URL", &cfg.BaseURL)
	r.str("PROBE_URL", &cfg.ProbeURL)
	r.boolean("HEADLESS", &cfg.Headless)
	r.str("USER_AGENT", &cfg.UserAgent)
	r.str("CHROME_PATH", &cfg.ChromePath)
	r.str("CHROMIUM_PACK_URL", &cfg.ChromiumPackURL)
	r.str("BROWSER_CACHE_DIR", &cfg.BrowserCacheDir)
	r.integer("VIEWPORT_WIDTH", &cfg.ViewportWidth)
	r.integer("VIEWPORT_HEIGHT", &cfg.ViewportHeight)
	r.duration("NAVIGATION_TIMEOUT", &cfg.NavigationTimeout)
	r.integer("NAVIGATION_RETRIES", &cfg.NavigationRetries)
	r.duration("MARKER_TIMEOUT", &cfg.MarkerTimeout)
	r.list("PROXIES", &cfg.Proxies, splitList)
	r.list("HEADERS", &cfg.Headers, headers.Split)
	r.float("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	r.integer("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	r.str("CACHE", &cfg.CacheBackend)
	r.int64("CACHE_MAX_BYTES", &cfg.CacheMaxSizeBytes)
	r.str("REDIS_ADDR", &cfg.RedisAddr)
	r.str("REDIS_PASSWORD", &cfg.RedisPassword)
	r.integer("REDIS_DB", &cfg.RedisDB)
	r.duration("DEVIATIONS_TTL", &cfg.DeviationsTTL)
	r.duration("METRO_STATUS_TTL", &cfg.MetroStatusTTL)
	r.duration("TARIFAS_TTL", &cfg.TarifasTTL)
	r.integer("METRO_MAX_LINES", &cfg.MetroMaxLines)
	r.str("LISTEN_ADDR", &cfg.ListenAddr)

	// PORT is set by most hosting platforms and wins over LLEGAPO_LISTEN_ADDR
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		cfg.ListenAddr = ":" + strings.TrimSpace(port)
	}

	return r.err
}

// applyFlags overrides cfg from the flags explicitly set on cmd
func applyFlags(cfg *Config, cmd *cobra.Command) error {
	flags := cmd.Flags()

	changed := func(name string) (string, bool) {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}

	var err error
	setErr := func(name, v string, e error) {
		if err == nil && e != nil {
			err = fmt.Errorf("invalid --%s=%q: %w", name, v, e)
		}
	}

	if v, ok := changed("verbose"); ok && v == "true" {
		cfg.LogLevel = "debug"
	}
	if v, ok := changed("quiet"); ok && v == "true" {
		cfg.LogLevel = "error"
	}
	if v, ok := changed("log-level"); ok {
		cfg.LogLevel = v
	}
	if v, ok := changed("json-log"); ok {
		cfg.JSONLog = v == "true"
	}
	if v, ok := changed("env"); ok {
		cfg.Env = v
	}
	if v, ok := changed("user-agent"); ok {
		cfg.UserAgent = v
	}
	if v, ok := changed("proxy"); ok {
		cfg.Proxies = splitList(v)
	}
	if _, ok := changed("header"); ok {
		values, e := flags.GetStringArray("header")
		setErr("header", "", e)
		cfg.Headers = values
	}
	if v, ok := changed("chrome-path"); ok {
		cfg.ChromePath = v
	}
	if v, ok := changed("base-url"); ok {
		cfg.BaseURL = v
	}
	if v, ok := changed("headless"); ok {
		b, e := strconv.ParseBool(v)
		setErr("headless", v, e)
		cfg.Headless = b
	}
	if v, ok := changed("timeout"); ok {
		d, e := parseDuration(v)
		setErr("timeout", v, e)
		cfg.NavigationTimeout = d
	}
	if v, ok := changed("addr"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := changed("cache"); ok {
		cfg.CacheBackend = v
	}

	return err
}

// parseDuration accepts Go durations ("30s") and bare milliseconds ("30000")
func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
