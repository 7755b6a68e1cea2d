package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/config"
	"github.com/softfinder/softfinder-go/internal/logs"
	"github.com/softfinder/softfinder-go/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API used by the desktop UI",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := setupLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if info, err := logs.GetLoggerInfo(cfg.Logging); err != nil {
		logger.Warn("Failed to get log directory info", zap.Error(err))
	} else {
		logger.Info("Log directory configured",
			zap.String("path", info.LogDir),
			zap.String("level", info.Level),
			zap.Bool("file", info.EnableFile))
	}

	logger.Info("Starting softfinder",
		zap.String("version", version),
		zap.String("data_dir", cfg.DataDir),
		zap.String("listen", cfg.Listen),
		zap.Strings("sources", cfg.EnabledSources()))

	srv, err := server.NewServer(cfg, logger, server.Options{Version: version})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := srv.Shutdown(); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}()

	watchConfig(cfg, srv, logger)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server stopped with error",
			zap.Error(err),
			zap.String("reason", exitCodeDescription(exitCodeFor(err))))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// watchConfig hot-reloads the enabled sources and page size when the config file changes.
func watchConfig(cfg *config.Config, srv *server.Server, logger *zap.Logger) {
	path := configFile
	if path == "" {
		path = config.GetConfigPath(cfg.DataDir)
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("No configuration file to watch", zap.String("path", path))
		return
	}

	err := config.Watch(path, logger, func(next *config.Config) {
		srv.ApplyConfig(next)
	})
	if err != nil {
		logger.Warn("Configuration hot reload disabled", zap.String("path", path), zap.Error(err))
	}
}
