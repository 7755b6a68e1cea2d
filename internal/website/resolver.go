// Package website guesses the official download site of an application by scraping a
// web search and scoring the result links.
package website

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/packages"
)

const (
	DefaultSearchURL    = "https://html.duckduckgo.com/html/"
	defaultTimeout      = 10 * time.Second
	defaultProbeTimeout = 3 * time.Second
	userAgent           = "Mozilla/5.0 (compatible; softfinder/1.0)"

	// acceptThreshold is exclusive: the best candidate must score above it.
	acceptThreshold = -3
)

// ErrScrapeFailed wraps transport and HTTP failures of the search scrape. It is never cached.
var ErrScrapeFailed = errors.New("web search scrape failed")

// Options configures a Resolver.
type Options struct {
	SearchURL    string
	Timeout      time.Duration
	ProbeDomains bool
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
	// ProbeURLs lists the URLs tried for a name slug when no scraped candidate qualifies.
	ProbeURLs func(slug string) []string
}

// Resolver finds official sites and caches both hits and misses.
type Resolver struct {
	searchURL string
	client    *http.Client
	probe     *http.Client
	probeURLs func(slug string) []string
	probing   bool
	cache     *cache.TTL[string]
	logger    *zap.Logger
}

// New creates a resolver. An empty cached value records "no official site".
func New(opts Options, siteCache *cache.TTL[string], logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.ProbeURLs == nil {
		opts.ProbeURLs = DefaultProbeURLs
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if siteCache == nil {
		siteCache = cache.NewTTL[string](string(packages.SourceWeb), cache.WebsiteTTL, cache.WithLogger(logger))
	}

	return &Resolver{
		searchURL: opts.SearchURL,
		client:    client,
		probe: &http.Client{
			Timeout: opts.ProbeTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		probeURLs: opts.ProbeURLs,
		probing:   opts.ProbeDomains,
		cache:     siteCache,
		logger:    logger.Named("website"),
	}
}

// Resolve returns the official site URL for appName, or "" when none could be determined.
// Scrape failures are returned as errors wrapping ErrScrapeFailed and are not cached.
func (r *Resolver) Resolve(ctx context.Context, appName string) (string, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return "", &packages.ValidationError{Field: "appName", Message: "application name is required"}
	}

	key := strings.ToLower(appName)
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug("Website cache hit", zap.String("app", appName), zap.String("url", cached))
		return cached, nil
	}

	candidates, err := r.scrape(ctx, appName)
	if err != nil {
		return "", err
	}

	if len(candidates) == 0 {
		r.logger.Debug("No search candidates", zap.String("app", appName))
		r.cache.Set(key, "")
		return "", nil
	}

	best, ok := pickBest(rankCandidates(appName, candidates))
	if ok {
		r.logger.Debug("Official site resolved",
			zap.String("app", appName),
			zap.String("url", best.URL),
			zap.Int("score", best.Score))
		r.cache.Set(key, best.URL)
		return best.URL, nil
	}

	found := ""
	if r.probing {
		found = r.probeDomains(ctx, appName)
	}
	r.cache.Set(key, found)
	return found, nil
}

// OfficialRecord builds the "official website" fallback record.
func OfficialRecord(query, siteURL string) packages.Record {
	return packages.Record{
		Name:        query,
		Source:      packages.SourceWeb,
		OfficialURL: siteURL,
	}
}

// ClearCache drops every cached lookup.
func (r *Resolver) ClearCache() { r.cache.Clear() }

// Caches exposes the lookup cache for metrics.
func (r *Resolver) Caches() []cache.StatsProvider { return []cache.StatsProvider{r.cache} }

func (r *Resolver) scrape(ctx context.Context, appName string) ([]Candidate, error) {
	u, err := url.Parse(r.searchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search url: %w", err)
	}
	params := u.Query()
	params.Set("q", "official site "+appName+" download")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: search returned %d", ErrScrapeFailed, resp.StatusCode)
	}

	candidates, err := ExtractCandidates(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	return candidates, nil
}

func (r *Resolver) probeDomains(ctx context.Context, appName string) string {
	slug := Slug(appName)
	if slug == "" {
		return ""
	}

	for _, candidate := range r.probeURLs(slug) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, http.NoBody)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := r.probe.Do(req)
		if err != nil {
			r.logger.Debug("Domain probe failed", zap.String("url", candidate), zap.Error(err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			r.logger.Debug("Domain probe succeeded",
				zap.String("app", appName),
				zap.String("url", candidate),
				zap.Int("status", resp.StatusCode))
			return candidate
		}
	}
	return ""
}

// DefaultProbeURLs returns the domains guessed from an application slug.
func DefaultProbeURLs(slug string) []string {
	return []string{
		"https://" + slug + ".com",
		"https://www." + slug + ".com",
		"https://" + slug + ".org",
		"https://" + slug + ".io",
		"https://" + slug + "app.com",
	}
}

// Slug lowercases name and keeps only ASCII letters and digits.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
