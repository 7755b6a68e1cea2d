package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListen = "127.0.0.1:8787"

	// Source names accepted in SourcesConfig.Enabled.
	SourceCatalog   = "catalog"
	SourceSecondary = "secondary-repo"

	DefaultCatalogURL     = "https://api.winget.run/v2/packages"
	DefaultCatalogMaxPage = 24
	DefaultChocoBinary    = "choco"
	DefaultWingetBinary   = "winget"
	DefaultSearchURL      = "https://html.duckduckgo.com/html/"
	DefaultPageSize       = 24
)

// Duration is a time.Duration that reads and writes human-readable strings ("15s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the main configuration structure
type Config struct {
	Listen  string `json:"listen" toml:"listen" mapstructure:"listen"`
	DataDir string `json:"data_dir" toml:"data_dir" mapstructure:"data-dir"`

	Sources *SourcesConfig `json:"sources,omitempty" toml:"sources" mapstructure:"sources"`
	Cache   *CacheConfig   `json:"cache,omitempty" toml:"cache" mapstructure:"cache"`
	Website *WebsiteConfig `json:"website,omitempty" toml:"website" mapstructure:"website"`
	Search  *SearchConfig  `json:"search,omitempty" toml:"search" mapstructure:"search"`

	// Logging configuration
	Logging *LogConfig `json:"logging,omitempty" toml:"logging" mapstructure:"logging"`

	// Tracing configuration (OpenTelemetry OTLP/HTTP)
	Tracing *TracingConfig `json:"tracing,omitempty" toml:"tracing" mapstructure:"tracing"`

	// Desktop notifications when installs and imports finish
	Notifications bool `json:"notifications" toml:"notifications" mapstructure:"notifications"`
}

// SourcesConfig configures the package sources and which of them are searched by default.
type SourcesConfig struct {
	Enabled    []string          `json:"enabled" toml:"enabled" mapstructure:"enabled"`
	Catalog    *CatalogConfig    `json:"catalog,omitempty" toml:"catalog" mapstructure:"catalog"`
	Chocolatey *ChocolateyConfig `json:"chocolatey,omitempty" toml:"chocolatey" mapstructure:"chocolatey"`
	Winget     *WingetConfig     `json:"winget,omitempty" toml:"winget" mapstructure:"winget"`
}

// CatalogConfig configures the hosted catalog API.
type CatalogConfig struct {
	URL         string   `json:"url" toml:"url" mapstructure:"url"`
	Timeout     Duration `json:"timeout" toml:"timeout" mapstructure:"timeout"`
	MaxPageSize int      `json:"max_page_size" toml:"max_page_size" mapstructure:"max-page-size"`
}

// ChocolateyConfig configures the Chocolatey command-line search.
type ChocolateyConfig struct {
	Binary  string   `json:"binary" toml:"binary" mapstructure:"binary"`
	Timeout Duration `json:"timeout" toml:"timeout" mapstructure:"timeout"`
}

// WingetConfig configures the local winget binary used for installed-app enumeration.
type WingetConfig struct {
	Binary  string   `json:"binary" toml:"binary" mapstructure:"binary"`
	Timeout Duration `json:"timeout" toml:"timeout" mapstructure:"timeout"`
}

// CacheConfig holds the TTLs of the pipeline caches.
type CacheConfig struct {
	RepositoryTTL Duration `json:"repository_ttl" toml:"repository_ttl" mapstructure:"repository-ttl"`
	WebsiteTTL    Duration `json:"website_ttl" toml:"website_ttl" mapstructure:"website-ttl"`
}

// WebsiteConfig configures the official-site resolver.
type WebsiteConfig struct {
	SearchURL    string   `json:"search_url" toml:"search_url" mapstructure:"search-url"`
	Timeout      Duration `json:"timeout" toml:"timeout" mapstructure:"timeout"`
	ProbeDomains bool     `json:"probe_domains" toml:"probe_domains" mapstructure:"probe-domains"`
	ProbeTimeout Duration `json:"probe_timeout" toml:"probe_timeout" mapstructure:"probe-timeout"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	PageSize int `json:"page_size" toml:"page_size" mapstructure:"page-size"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string `json:"level" toml:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" toml:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" toml:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" toml:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" toml:"log_dir" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" toml:"max_size" mapstructure:"max-size"`        // MB
	MaxBackups    int    `json:"max_backups" toml:"max_backups" mapstructure:"max-backups"`
	MaxAge        int    `json:"max_age" toml:"max_age" mapstructure:"max-age"` // days
	Compress      bool   `json:"compress" toml:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" toml:"json_format" mapstructure:"json-format"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `json:"enabled" toml:"enabled" mapstructure:"enabled"`
	OTLPEndpoint string  `json:"otlp_endpoint" toml:"otlp_endpoint" mapstructure:"otlp-endpoint"`
	SampleRate   float64 `json:"sample_rate" toml:"sample_rate" mapstructure:"sample-rate"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Listen:  defaultListen,
		DataDir: "", // Will be set to ~/.softfinder by loader

		Sources: &SourcesConfig{
			Enabled: []string{SourceCatalog, SourceSecondary},
			Catalog: &CatalogConfig{
				URL:         DefaultCatalogURL,
				Timeout:     Duration(10 * time.Second),
				MaxPageSize: DefaultCatalogMaxPage,
			},
			Chocolatey: &ChocolateyConfig{
				Binary:  DefaultChocoBinary,
				Timeout: Duration(15 * time.Second),
			},
			Winget: &WingetConfig{
				Binary:  DefaultWingetBinary,
				Timeout: Duration(60 * time.Second),
			},
		},

		Cache: &CacheConfig{
			RepositoryTTL: Duration(5 * time.Minute),
			WebsiteTTL:    Duration(10 * time.Minute),
		},

		Website: &WebsiteConfig{
			SearchURL:    DefaultSearchURL,
			Timeout:      Duration(10 * time.Second),
			ProbeDomains: true,
			ProbeTimeout: Duration(3 * time.Second),
		},

		Search: &SearchConfig{
			PageSize: DefaultPageSize,
		},

		Logging: &LogConfig{
			Level:         "info",
			EnableFile:    true,
			EnableConsole: true,
			Filename:      "main.log",
			MaxSize:       10, // 10MB
			MaxBackups:    5,  // 5 backup files
			MaxAge:        30, // 30 days
			Compress:      true,
			JSONFormat:    false,
		},

		Tracing: &TracingConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4318",
			SampleRate:   1.0,
		},

		Notifications: true,
	}
}

// EnabledSources returns the enabled source names, de-duplicated, in config order.
func (c *Config) EnabledSources() []string {
	if c.Sources == nil {
		return nil
	}
	seen := make(map[string]bool, len(c.Sources.Enabled))
	out := make([]string, 0, len(c.Sources.Enabled))
	for _, s := range c.Sources.Enabled {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// MarshalJSON implements json.Marshaler interface
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal((*Alias)(c))
}

// UnmarshalJSON implements json.Unmarshaler interface
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	return json.Unmarshal(data, aux)
}
