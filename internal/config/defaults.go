package config

import "time"

// Default constants for application configuration
const (
	DefaultEnv               = EnvDevelopment
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultListenAddr        = ":3000"
	DefaultBaseURL           = "https://www.red.cl"
	DefaultProbeURL          = "https://httpbin.org"
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultHeadless          = true
	DefaultNavigationTimeout = 30 * time.Second
	DefaultNavigationRetries = 2
	DefaultMarkerTimeout     = 5 * time.Second
	DefaultViewportWidth     = 1920
	DefaultViewportHeight    = 1080
	DefaultRateLimitRPS      = 1.0
	DefaultRateLimitBurst    = 3
	DefaultCacheBackend      = CacheNone
	DefaultCacheMaxSizeBytes = 16 * 1024 * 1024 // 16MB
	DefaultDeviationsTTL     = time.Hour
	DefaultMetroStatusTTL    = 2 * time.Minute
	DefaultTarifasTTL        = 24 * time.Hour
	DefaultEnvFile           = ".env"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)
