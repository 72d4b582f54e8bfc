package cli

import (
	"context"
	"time"

	"github.com/llegapo/scraper/internal/api"
	"github.com/llegapo/scraper/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// drainTimeout bounds how long in-flight scrapes may finish after a signal
const drainTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the scrapers over HTTP:

- GET /api/deviations
- GET /api/metro-status
- GET /api/tarifas
- GET /api/test
- GET /api/debug
- GET /healthz
- GET /metrics

Add ?fresh=1 to bypass the result cache.`,
	Example: `  # Listen on the default address
  llegapo serve

  # Listen on a custom port with an in-memory result cache
  llegapo serve --addr :8080 --cache memory`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	config.RegisterServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	cfg := a.Config

	server := api.NewServer(cfg.ListenAddr, a.Handlers(), cfg.LogLevel == "debug")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
		log.Warn().Msg("Interrupt received, shutting down gracefully")
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}
