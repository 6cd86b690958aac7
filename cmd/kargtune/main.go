package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/kargtune/kargtune/cmd/kargtune/commands"
	"github.com/kargtune/kargtune/pkg/telemetry"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received interrupt signal, shutting down...")
		cancel()
	}()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		os.Exit(1)
	}
}

// setupLogging configures the global logger. LOG_FORMAT=json switches off the
// human-readable console writer for machine consumption.
func setupLogging() {
	format := "console"
	if os.Getenv("LOG_FORMAT") == "json" {
		format = "json"
	}

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: format,
		Output: "stderr",
	})
	if err != nil {
		// Stderr never fails to open; this is unreachable in practice.
		return
	}
	log.Logger = *logger.Zerolog()
}
