package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all logging except errors")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	cmd.PersistentFlags().String("env", "", "Runtime environment (development or production)")
	cmd.PersistentFlags().String("env-file", DefaultEnvFile, "Path to a .env file (optional)")
	cmd.PersistentFlags().String("proxy", "", "Comma separated proxies (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "30s", "Navigation timeout")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra request header (e.g., -H \"Accept-Language: es-CL\")")
	cmd.PersistentFlags().String("chrome-path", "", "Path to a Chrome/Chromium binary")
	cmd.PersistentFlags().Bool("headless", DefaultHeadless, "Run the browser headless")
	cmd.PersistentFlags().String("base-url", "", "Base URL of the scraped site")
}

// RegisterServeFlags registers the flags of the HTTP server command
func RegisterServeFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.Flags().String("addr", DefaultListenAddr, "Listen address")
	cmd.Flags().String("cache", DefaultCacheBackend, "Result cache backend (none, memory, redis)")
}
