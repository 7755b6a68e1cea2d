// Package choco searches the Chocolatey community repository through the local choco CLI.
// The CLI has no server-side paging, so the full result set is fetched once per query and
// pages are sliced from the cached copy.
package choco

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/cmdrunner"
	"github.com/softfinder/softfinder-go/internal/packages"
)

const (
	DefaultBinary   = "choco"
	DefaultTimeout  = 15 * time.Second
	DefaultPageSize = 24

	unknownPublisher = "Unknown"
	fullResultSuffix = "_all"
)

// Options configures an Adapter.
type Options struct {
	Binary  string
	Timeout time.Duration
	Runner  cmdrunner.Runner
}

// Adapter runs `choco search` and serves client-side pages from the cached full result.
type Adapter struct {
	binary   string
	timeout  time.Duration
	runner   cmdrunner.Runner
	results  *cache.TTL[packages.Page]
	versions *cache.TTL[[]string]
	logger   *zap.Logger
}

// New creates a Chocolatey adapter. Search results are stored in resultCache; version
// listings get a private cache with the same TTL.
func New(opts Options, resultCache *cache.TTL[packages.Page], logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Runner == nil {
		opts.Runner = cmdrunner.Exec{}
	}
	if resultCache == nil {
		resultCache = cache.NewTTL[packages.Page](string(packages.SourceSecondary), cache.RepositoryTTL, cache.WithLogger(logger))
	}

	return &Adapter{
		binary:   opts.Binary,
		timeout:  opts.Timeout,
		runner:   opts.Runner,
		results:  resultCache,
		versions: cache.NewTTL[[]string](string(packages.SourceSecondary)+"-versions", resultCache.TTL(), cache.WithLogger(logger)),
		logger:   logger.Named("choco"),
	}
}

// Source returns the identifier stamped on every record of this adapter.
func (a *Adapter) Source() packages.Source { return packages.SourceSecondary }

// Search returns the records in [page*limit, page*limit+limit) of the full result set.
// Total is the size of the full set.
func (a *Adapter) Search(ctx context.Context, query string, page, limit int) (packages.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return packages.Page{}, packages.ErrEmptyQuery
	}
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	key := strings.ToLower(query) + fullResultSuffix
	full, ok := a.results.Get(key)
	if ok {
		a.logger.Debug("Chocolatey cache hit", zap.String("key", key))
	} else {
		out, err := a.run(ctx, "search", query, "--limit-output")
		if err != nil {
			return packages.Page{}, err
		}
		full = packages.Page{Records: parseSearchOutput(out)}
		full.Total = len(full.Records)
		a.results.Set(key, full)
		a.logger.Debug("Chocolatey search completed",
			zap.String("query", query),
			zap.Int("total", full.Total))
	}

	return slicePage(full, page, limit), nil
}

// Versions lists every published version of packageID, newest first.
func (a *Adapter) Versions(ctx context.Context, packageID string) ([]string, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, packages.ErrEmptyPackageID
	}

	key := strings.ToLower(packageID)
	if cached, ok := a.versions.Get(key); ok {
		return append([]string(nil), cached...), nil
	}

	out, err := a.run(ctx, "search", packageID, "--exact", "--all-versions", "--limit-output")
	if err != nil {
		return nil, err
	}

	var raw []string
	for _, line := range parseLines(out) {
		if strings.EqualFold(line.id, packageID) && line.version != "" {
			raw = append(raw, line.version)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("package '%s' not found in chocolatey", packageID)
	}

	versions := packages.SortVersions(raw)
	a.versions.Set(key, versions)
	return append([]string(nil), versions...), nil
}

// Command returns the install command for packageID.
func (a *Adapter) Command(packageID, version string) string { return Command(packageID, version) }

// ClearCache drops cached search results and version listings.
func (a *Adapter) ClearCache() {
	a.results.Clear()
	a.versions.Clear()
}

// Caches exposes the adapter caches for metrics.
func (a *Adapter) Caches() []cache.StatsProvider {
	return []cache.StatsProvider{a.results, a.versions}
}

func (a *Adapter) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.runner.Output(ctx, a.binary, args...)
	if err != nil {
		if errors.Is(err, cmdrunner.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("chocolatey search timed out after %s: %w", a.timeout, cmdrunner.ErrTimeout)
		}
		return nil, fmt.Errorf("chocolatey search failed: %w", err)
	}
	return out, nil
}

func slicePage(full packages.Page, page, limit int) packages.Page {
	// Bound page before multiplying so huge indexes cannot overflow.
	if page < 0 || limit <= 0 || page > len(full.Records)/limit {
		return packages.Page{Records: []packages.Record{}, Total: full.Total}
	}
	start := page * limit
	if start >= len(full.Records) {
		return packages.Page{Records: []packages.Record{}, Total: full.Total}
	}
	end := start + limit
	if end > len(full.Records) {
		end = len(full.Records)
	}
	return packages.Page{Records: full.Records[start:end], Total: full.Total}.Clone()
}

// Command builds the Chocolatey install command. An empty id yields an empty command and
// an empty version installs the latest release.
func Command(packageID, version string) string {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return ""
	}
	cmd := "choco install " + packageID + " -y"
	if version = strings.TrimSpace(version); version != "" {
		cmd += " --version=" + version
	}
	return cmd
}
