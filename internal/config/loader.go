package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultDataDir = ".softfinder"
	ConfigFileName = "softfinder_config.json"
	EnvPrefix      = "SOFTFINDER"
	dotEnvFile     = ".env"
)

// Load loads configuration from file, .env files, environment and defaults.
// An empty configPath falls back to SOFTFINDER_CONFIG and then to the data directory.
func Load(configPath string) (*Config, error) {
	loadDotEnv("")

	v := newViper()

	if configPath == "" {
		configPath = v.GetString("config")
	}

	cfg := DefaultConfig()
	if dir := v.GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	if configPath == "" {
		dataDir, err := resolveDataDir(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		loadDotEnv(dataDir)
		candidate := filepath.Join(dataDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(v, cfg)

	dataDir, err := resolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file without environment overrides.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	dataDir, err := resolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newViper configures a viper instance with environment variable handling
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Replace - and . with _ for environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("config", "")
	v.SetDefault("data-dir", "")
	return v
}

// applyEnvOverrides applies SOFTFINDER_* environment variables on top of file settings
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if value := v.GetString("listen"); value != "" {
		cfg.Listen = value
	}
	if value := v.GetString("data-dir"); value != "" {
		cfg.DataDir = value
	}
	if cfg.Sources == nil {
		cfg.Sources = DefaultConfig().Sources
	}
	if value := v.GetString("sources"); value != "" {
		cfg.Sources.Enabled = splitList(value)
	}
	if value := v.GetString("catalog.url"); value != "" && cfg.Sources.Catalog != nil {
		cfg.Sources.Catalog.URL = value
	}
	if value := v.GetString("choco.binary"); value != "" && cfg.Sources.Chocolatey != nil {
		cfg.Sources.Chocolatey.Binary = value
	}
	if value := v.GetString("winget.binary"); value != "" && cfg.Sources.Winget != nil {
		cfg.Sources.Winget.Binary = value
	}
	if value := v.GetInt("page-size"); value > 0 {
		if cfg.Search == nil {
			cfg.Search = &SearchConfig{}
		}
		cfg.Search.PageSize = value
	}
	if value := v.GetString("log-level"); value != "" {
		if cfg.Logging == nil {
			cfg.Logging = DefaultConfig().Logging
		}
		cfg.Logging.Level = value
	}
	if v.IsSet("notifications") {
		cfg.Notifications = v.GetBool("notifications")
	}
	if v.IsSet("tracing.enabled") {
		if cfg.Tracing == nil {
			cfg.Tracing = DefaultConfig().Tracing
		}
		cfg.Tracing.Enabled = v.GetBool("tracing.enabled")
	}
}

// loadConfigFile loads configuration from a JSON or TOML file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Empty file (including /dev/null) is treated as no configuration
	if len(data) == 0 {
		return nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse TOML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return nil
}

// loadDotEnv loads a .env file from dir (or the working directory when dir is empty).
// Variables already present in the environment win.
func loadDotEnv(dir string) {
	path := dotEnvFile
	if dir != "" {
		path = filepath.Join(dir, dotEnvFile)
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func resolveDataDir(dataDir string) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultDataDir), nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SaveConfig writes configuration to path atomically (temp file + rename) so a concurrent
// reader never observes a partially written file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".softfinder-config-*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close config file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file in the data directory
func GetConfigPath(dataDir string) string {
	dir, err := resolveDataDir(dataDir)
	if err != nil {
		dir = DefaultDataDir
	}
	return filepath.Join(dir, ConfigFileName)
}

// CreateSampleConfig writes the default configuration to path unless a file already exists.
func CreateSampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return SaveConfig(DefaultConfig(), path)
}
