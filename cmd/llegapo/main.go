package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/llegapo/scraper/internal/cli"
)

func main() {
	// Cancelled on SIGINT/SIGTERM so commands can shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
