package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	RegisterFlags(cmd)
	RegisterServeFlags(cmd)
	return cmd
}

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Production() {
		t.Error("defaults should not be production")
	}
	if cfg.CacheBackend != CacheNone {
		t.Errorf("expected cache disabled by default, got %q", cfg.CacheBackend)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(cfg, mapLookup(map[string]string{
		"LLEGAPO_ENV":                "production",
		"LLEGAPO_HEADLESS":           "false",
		"LLEGAPO_NAVIGATION_TIMEOUT": "45s",
		"LLEGAPO_MARKER_TIMEOUT":     "7000",
		"LLEGAPO_PROXIES":            "http://a:1, ,http://b:2",
		"LLEGAPO_HEADERS":            "Accept-Language: es-CL,es | DNT: 1",
		"LLEGAPO_RATE_LIMIT_RPS":     "2.5",
		"LLEGAPO_CACHE":              "redis",
		"LLEGAPO_REDIS_ADDR":         "localhost:6379",
		"LLEGAPO_METRO_MAX_LINES":    "3",
		"LLEGAPO_CHROMIUM_PACK_URL":  "https://example.com/chromium-{arch}.tar",
		"PORT":                       "8080",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}

	if !cfg.Production() {
		t.Error("expected production")
	}
	if cfg.Headless {
		t.Error("expected headless=false")
	}
	if cfg.NavigationTimeout != 45*time.Second {
		t.Errorf("navigation timeout = %v", cfg.NavigationTimeout)
	}
	if cfg.MarkerTimeout != 7*time.Second {
		t.Errorf("bare milliseconds should parse, got %v", cfg.MarkerTimeout)
	}
	if len(cfg.Proxies) != 2 || cfg.Proxies[1] != "http://b:2" {
		t.Errorf("proxies = %v", cfg.Proxies)
	}
	if len(cfg.Headers) != 2 || cfg.Headers[0] != "Accept-Language: es-CL,es" {
		t.Errorf("headers = %v", cfg.Headers)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("rps = %v", cfg.RateLimitRPS)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("PORT should set listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.MetroMaxLines != 3 {
		t.Errorf("metro max lines = %d", cfg.MetroMaxLines)
	}
	if err := validate(cfg); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestApplyEnvInvalidValue(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(cfg, mapLookup(map[string]string{
		"LLEGAPO_NAVIGATION_RETRIES": "many",
	}))
	if err == nil {
		t.Fatal("expected error for non-numeric retries")
	}
}

func TestApplyEnvBlankIgnored(t *testing.T) {
	cfg := Defaults()
	if err := applyEnv(cfg, mapLookup(map[string]string{"LLEGAPO_BASE_URL": "  "})); err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("blank value should keep default, got %q", cfg.BaseURL)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LLEGAPO_USER_AGENT", "env-agent")
	t.Setenv("LLEGAPO_CACHE", "memory")

	cmd := newCommand()
	if err := cmd.ParseFlags([]string{"--user-agent", "flag-agent", "--timeout", "10s", "-v", "-H", "DNT: 1"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UserAgent != "flag-agent" {
		t.Errorf("flag should win over env, got %q", cfg.UserAgent)
	}
	if cfg.CacheBackend != CacheMemory {
		t.Errorf("unset flag should keep env value, got %q", cfg.CacheBackend)
	}
	if cfg.NavigationTimeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.NavigationTimeout)
	}
	if len(cfg.Headers) != 1 || cfg.Headers[0] != "DNT: 1" {
		t.Errorf("headers = %v", cfg.Headers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("verbose should set debug, got %q", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "LLEGAPO_BASE_URL=https://staging.red.cl\nLLEGAPO_RATE_LIMIT_BURST=9\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// present in the environment, so the file must not override it
	t.Setenv("LLEGAPO_RATE_LIMIT_BURST", "4")
	t.Cleanup(func() { os.Unsetenv("LLEGAPO_BASE_URL") })

	cmd := newCommand()
	if err := cmd.ParseFlags([]string{"--env-file", envFile}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://staging.red.cl" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.RateLimitBurst != 4 {
		t.Errorf("environment should win over .env, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	cmd := newCommand()
	if err := cmd.ParseFlags([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cmd); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown env", func(c *Config) { c.Env = "staging" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad base url", func(c *Config) { c.BaseURL = "red.cl" }},
		{"zero timeout", func(c *Config) { c.NavigationTimeout = 0 }},
		{"negative retries", func(c *Config) { c.NavigationRetries = -1 }},
		{"zero viewport", func(c *Config) { c.ViewportWidth = 0 }},
		{"unknown cache", func(c *Config) { c.CacheBackend = "memcached" }},
		{"redis without addr", func(c *Config) { c.CacheBackend = CacheRedis }},
		{"negative ttl", func(c *Config) { c.TarifasTTL = -time.Second }},
		{"negative metro lines", func(c *Config) { c.MetroMaxLines = -2 }},
		{"malformed header", func(c *Config) { c.Headers = []string{"no colon"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			if err := validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
