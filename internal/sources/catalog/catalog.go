// Package catalog searches the hosted winget catalog API (winget.run) and turns its
// package entries into normalized records with winget install commands.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/packages"
)

const (
	// MaxPageSize is the largest page the catalog API serves.
	MaxPageSize = 24

	DefaultBaseURL = "https://api.winget.run/v2/packages"
	defaultTimeout = 10 * time.Second

	unknownPackage   = "Unknown Package"
	unknownPublisher = "Unknown Publisher"
)

// Options configures an Adapter.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxPageSize int
	HTTPClient  *http.Client
}

// Adapter queries the catalog API with server-side paging and caches every page it fetched.
type Adapter struct {
	baseURL string
	maxPage int
	client  *http.Client
	cache   *cache.TTL[packages.Page]
	logger  *zap.Logger
}

// New creates a catalog adapter that stores pages in pageCache.
func New(opts Options, pageCache *cache.TTL[packages.Page], logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxPageSize <= 0 || opts.MaxPageSize > MaxPageSize {
		opts.MaxPageSize = MaxPageSize
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if pageCache == nil {
		pageCache = cache.NewTTL[packages.Page](string(packages.SourceCatalog), cache.RepositoryTTL, cache.WithLogger(logger))
	}

	return &Adapter{
		baseURL: opts.BaseURL,
		maxPage: opts.MaxPageSize,
		client:  client,
		cache:   pageCache,
		logger:  logger.Named("catalog"),
	}
}

// Source returns the identifier stamped on every record of this adapter.
func (a *Adapter) Source() packages.Source { return packages.SourceCatalog }

// Search returns one page of catalog results. A zero or negative limit requests the
// largest page; larger limits are clamped to it.
func (a *Adapter) Search(ctx context.Context, query string, page, limit int) (packages.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return packages.Page{}, packages.ErrEmptyQuery
	}
	if page < 0 {
		page = 0
	}
	if limit <= 0 || limit > a.maxPage {
		limit = a.maxPage
	}

	key := packages.CacheKey(query, page, limit)
	if cached, ok := a.cache.Get(key); ok {
		a.logger.Debug("Catalog cache hit", zap.String("key", key))
		return cached.Clone(), nil
	}

	resp, err := a.fetch(ctx, query, page, limit)
	if err != nil {
		return packages.Page{}, err
	}

	result := packages.Page{Records: make([]packages.Record, 0, len(resp.Packages))}
	for _, entry := range resp.Packages {
		result.Records = append(result.Records, entry.toRecord())
	}
	result.Total = resp.Total
	if result.Total <= 0 {
		result.Total = len(result.Records)
	}

	a.cache.Set(key, result.Clone())
	a.logger.Debug("Catalog search completed",
		zap.String("query", query),
		zap.Int("page", page),
		zap.Int("records", len(result.Records)),
		zap.Int("total", result.Total))

	return result, nil
}

// Versions returns the published versions of packageID, newest first.
func (a *Adapter) Versions(ctx context.Context, packageID string) ([]string, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, packages.ErrEmptyPackageID
	}

	result, err := a.Search(ctx, packageID, 0, a.maxPage)
	if err != nil {
		return nil, err
	}
	for _, r := range result.Records {
		if strings.EqualFold(r.PackageID, packageID) {
			return r.Versions, nil
		}
	}
	return nil, fmt.Errorf("package '%s' not found in catalog", packageID)
}

// Command returns the install command for packageID.
func (a *Adapter) Command(packageID, version string) string { return Command(packageID, version) }

// ClearCache drops every cached page.
func (a *Adapter) ClearCache() { a.cache.Clear() }

// Caches exposes the page cache for metrics.
func (a *Adapter) Caches() []cache.StatsProvider { return []cache.StatsProvider{a.cache} }

func (a *Adapter) fetch(ctx context.Context, query string, page, limit int) (*searchResponse, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url: %w", err)
	}
	params := u.Query()
	params.Set("query", query)
	params.Set("take", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog query returned %d: %s", resp.StatusCode, resp.Status)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON from catalog: %w", err)
	}
	return &decoded, nil
}

// Command builds the winget install command. An empty id yields an empty command and an
// empty version installs the latest release.
func Command(packageID, version string) string {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return ""
	}
	cmd := "winget install --id " + packageID + " -e --accept-source-agreements --accept-package-agreements"
	if version = strings.TrimSpace(version); version != "" {
		cmd += " --version " + version
	}
	return cmd
}
