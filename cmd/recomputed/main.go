// Command recomputed is the derived-valuation recompute daemon. It turns
// fact mutations into durable rebuild jobs, runs them through a worker pool,
// and rolls carried values forward across the UTC midnight boundary.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrimo/patrimo-backend/internal/app"
	"github.com/patrimo/patrimo-backend/internal/common"
)

func main() {
	cfg, err := common.LoadConfig("config.toml", os.Getenv("PATRIMO_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := common.NewLogger(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build application")
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Daemon failed")
	}
	logger.Info().Msg("Recompute daemon stopped")
}
