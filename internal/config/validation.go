package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidationError represents a configuration problem found by Validate
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var knownSources = map[string]bool{
	SourceCatalog:   true,
	SourceSecondary: true,
}

// Validate fills missing sections with defaults, clamps out-of-range values and rejects
// settings that cannot work.
func (c *Config) Validate() error {
	defaults := DefaultConfig()

	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Sources == nil {
		c.Sources = defaults.Sources
	}
	if c.Sources.Catalog == nil {
		c.Sources.Catalog = defaults.Sources.Catalog
	}
	if c.Sources.Chocolatey == nil {
		c.Sources.Chocolatey = defaults.Sources.Chocolatey
	}
	if c.Sources.Winget == nil {
		c.Sources.Winget = defaults.Sources.Winget
	}
	if c.Cache == nil {
		c.Cache = defaults.Cache
	}
	if c.Website == nil {
		c.Website = defaults.Website
	}
	if c.Search == nil {
		c.Search = defaults.Search
	}
	if c.Logging == nil {
		c.Logging = defaults.Logging
	}
	if c.Tracing == nil {
		c.Tracing = defaults.Tracing
	}

	cat := c.Sources.Catalog
	if cat.URL == "" {
		cat.URL = DefaultCatalogURL
	}
	if cat.MaxPageSize <= 0 || cat.MaxPageSize > DefaultCatalogMaxPage {
		cat.MaxPageSize = DefaultCatalogMaxPage
	}
	if cat.Timeout <= 0 {
		cat.Timeout = Duration(10 * time.Second)
	}
	if c.Sources.Chocolatey.Binary == "" {
		c.Sources.Chocolatey.Binary = DefaultChocoBinary
	}
	if c.Sources.Chocolatey.Timeout <= 0 {
		c.Sources.Chocolatey.Timeout = Duration(15 * time.Second)
	}
	if c.Sources.Winget.Binary == "" {
		c.Sources.Winget.Binary = DefaultWingetBinary
	}
	if c.Sources.Winget.Timeout <= 0 {
		c.Sources.Winget.Timeout = Duration(60 * time.Second)
	}
	if c.Cache.RepositoryTTL <= 0 {
		c.Cache.RepositoryTTL = Duration(5 * time.Minute)
	}
	if c.Cache.WebsiteTTL <= 0 {
		c.Cache.WebsiteTTL = Duration(10 * time.Minute)
	}
	if c.Website.SearchURL == "" {
		c.Website.SearchURL = DefaultSearchURL
	}
	if c.Website.Timeout <= 0 {
		c.Website.Timeout = Duration(10 * time.Second)
	}
	if c.Website.ProbeTimeout <= 0 {
		c.Website.ProbeTimeout = Duration(3 * time.Second)
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = DefaultPageSize
	}
	if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
		c.Tracing.SampleRate = 1.0
	}

	for _, s := range c.EnabledSources() {
		if !knownSources[s] {
			return ValidationError{Field: "sources.enabled", Message: fmt.Sprintf("unknown source %q", s)}
		}
	}
	if _, err := url.ParseRequestURI(cat.URL); err != nil {
		return ValidationError{Field: "sources.catalog.url", Message: err.Error()}
	}
	if _, err := url.ParseRequestURI(c.Website.SearchURL); err != nil {
		return ValidationError{Field: "website.search_url", Message: err.Error()}
	}

	return nil
}
