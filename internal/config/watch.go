package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watch reloads the configuration file whenever it changes on disk and hands the new,
// validated configuration to onChange. Invalid edits are logged and ignored.
func Watch(path string, logger *zap.Logger, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("no config file to watch")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config for watching: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := LoadFromFile(path)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				zap.String("path", path),
				zap.Error(err))
			return
		}
		logger.Info("Configuration reloaded",
			zap.String("path", path),
			zap.String("op", e.Op.String()),
			zap.Strings("sources", cfg.EnabledSources()))
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}
