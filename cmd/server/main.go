// Command server runs the Sprout navigator: the backend navigation
// service that owns the coordinator tree, routes navigation events, and
// streams screen changes to renderer clients.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/config"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewDefault().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logging.NewDefault().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to assemble navigator", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	}
}
