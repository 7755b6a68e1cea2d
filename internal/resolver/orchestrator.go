// Package resolver fans a query out to the enabled package sources, merges what comes
// back and falls back to web-search links and an official-site guess when nothing matched.
package resolver

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/websearch"
	"github.com/softfinder/softfinder-go/internal/website"
)

const (
	tracerName   = "github.com/softfinder/softfinder-go/internal/resolver"
	defaultLimit = 24

	statusSuccess = "success"
	statusError   = "error"

	FallbackOfficial      = "official"
	FallbackOfficialMiss  = "official_miss"
	FallbackOfficialError = "official_error"
	FallbackWebSearch     = "web_search"
)

// Orchestrator runs searches across sources. It is safe for concurrent use.
type Orchestrator struct {
	sources map[packages.Source]Source
	site    SiteResolver
	links   LinkGenerator
	metrics Recorder
	tracer  trace.Tracer
	logger  *zap.Logger

	mu           sync.RWMutex
	enabled      []packages.Source
	defaultLimit int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSource registers a package source.
func WithSource(s Source) Option {
	return func(o *Orchestrator) { o.sources[s.Source()] = s }
}

// WithSiteResolver sets the official-site resolver used in the fallback chain.
func WithSiteResolver(r SiteResolver) Option {
	return func(o *Orchestrator) { o.site = r }
}

// WithLinkGenerator replaces the web-search fallback builder.
func WithLinkGenerator(g LinkGenerator) Option {
	return func(o *Orchestrator) { o.links = g }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// WithEnabled sets the sources searched when a request does not name any.
func WithEnabled(sources ...packages.Source) Option {
	return func(o *Orchestrator) { o.enabled = append([]packages.Source(nil), sources...) }
}

// WithDefaultLimit sets the page size used when a request has none.
func WithDefaultLimit(limit int) Option {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.defaultLimit = limit
		}
	}
}

// New creates an orchestrator. Without WithEnabled every registered source is searched.
func New(logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		sources:      make(map[packages.Source]Source),
		links:        websearch.FallbackRecord,
		metrics:      nopRecorder{},
		tracer:       otel.Tracer(tracerName),
		logger:       logger.Named("resolver"),
		defaultLimit: defaultLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.enabled == nil {
		o.enabled = append([]packages.Source(nil), packages.RepositorySources...)
	}
	return o
}

// SetEnabled replaces the default source set, used on configuration reload.
func (o *Orchestrator) SetEnabled(sources []packages.Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = append([]packages.Source{}, sources...)
}

// SetDefaultLimit replaces the default page size, used on configuration reload.
func (o *Orchestrator) SetDefaultLimit(limit int) {
	if limit <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.defaultLimit = limit
}

// Enabled returns the default source set.
func (o *Orchestrator) Enabled() []packages.Source {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]packages.Source{}, o.enabled...)
}

// Search runs one query. It never fails: source errors become diagnostics and an
// unexpected panic is converted into a best-effort fallback result.
func (o *Orchestrator) Search(ctx context.Context, req Request) (result Result) {
	query := packages.NormalizeQuery(req.Query)
	page, limit := req.Page, req.Limit
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		o.mu.RLock()
		limit = o.defaultLimit
		o.mu.RUnlock()
	}

	base := Result{Query: query, Page: page, Limit: limit, Records: []packages.Record{}}
	if query == "" {
		base.Status = StatusEmpty
		return base
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Search panicked, serving fallback",
				zap.String("query", query),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			result = base
			result.Diagnostics = []Diagnostic{{Error: fmt.Sprintf("internal error: %v", r)}}
			result.Records, result.Total = o.fallback(ctx, query)
			attachDiagnostics(result.Records, result.Diagnostics)
			result.FallbackUsed = true
			result.Status = StatusDegraded
		}
	}()

	ctx, span := o.tracer.Start(ctx, "resolver.search", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	))
	defer span.End()

	outcomes := o.fanOut(ctx, o.selectSources(req.Sources), query, page, limit)

	result = base
	total := 0
	for _, out := range outcomes {
		if out.err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Source: out.source, Error: out.err.Error()})
			continue
		}
		result.Records = append(result.Records, out.page.Records...)
		total += out.page.Total
	}

	if len(result.Records) > 0 {
		result.Total = total
		if result.Total <= 0 {
			result.Total = len(result.Records)
		}
		result.Status = StatusOK
		if len(result.Diagnostics) > 0 {
			result.Status = StatusDegraded
		}
		span.SetAttributes(attribute.Int("records", len(result.Records)), attribute.String("status", string(result.Status)))
		return result
	}

	result.Records, result.Total = o.fallback(ctx, query)
	attachDiagnostics(result.Records, result.Diagnostics)
	result.FallbackUsed = true
	result.Status = StatusFallback
	if len(result.Diagnostics) > 0 {
		result.Status = StatusDegraded
	}
	span.SetAttributes(attribute.Int("records", len(result.Records)), attribute.String("status", string(result.Status)))
	return result
}

type outcome struct {
	source packages.Source
	page   packages.Page
	err    error
}

// selectSources returns the registered sources to search, in merge order.
func (o *Orchestrator) selectSources(requested []packages.Source) []Source {
	if requested == nil {
		requested = o.Enabled()
	}
	want := make(map[packages.Source]bool, len(requested))
	for _, s := range requested {
		want[s] = true
	}

	var selected []Source
	for _, id := range packages.RepositorySources {
		if src, ok := o.sources[id]; ok && want[id] {
			selected = append(selected, src)
		}
	}
	return selected
}

// fanOut runs every source concurrently and waits for all of them. Outcomes keep the
// order of sources regardless of completion order.
func (o *Orchestrator) fanOut(ctx context.Context, sources []Source, query string, page, limit int) []outcome {
	outcomes := make([]outcome, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = o.searchSource(ctx, src, query, page, limit)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) searchSource(ctx context.Context, src Source, query string, page, limit int) (out outcome) {
	id := src.Source()
	out.source = id
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "source.search", trace.WithAttributes(attribute.String("source", string(id))))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Source panicked",
				zap.String("source", string(id)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			out.page = packages.Page{}
			out.err = &SourceError{Source: id, Err: fmt.Errorf("panic: %v", r)}
		}

		status := statusSuccess
		if out.err != nil {
			status = statusError
			span.RecordError(out.err)
			span.SetStatus(codes.Error, out.err.Error())
		}
		o.metrics.RecordSourceRequest(string(id), status, time.Since(start))
	}()

	result, err := src.Search(ctx, query, page, limit)
	if err != nil {
		o.logger.Warn("Source search failed",
			zap.String("source", string(id)),
			zap.String("query", query),
			zap.Error(err))
		return outcome{source: id, err: &SourceError{Source: id, Err: err}}
	}

	span.SetAttributes(attribute.Int("records", len(result.Records)), attribute.Int("total", result.Total))
	return outcome{source: id, page: result}
}

// fallback builds the official-site record (when one resolves) followed by the web-search
// record. Failures of either step are swallowed.
func (o *Orchestrator) fallback(ctx context.Context, query string) ([]packages.Record, int) {
	ctx, span := o.tracer.Start(ctx, "resolver.fallback")
	defer span.End()

	records := make([]packages.Record, 0, 2)

	if siteURL := o.resolveSite(ctx, query); siteURL != "" {
		records = append(records, website.OfficialRecord(query, siteURL))
	}

	if rec, err := o.buildLinks(query); err != nil {
		o.logger.Warn("Failed to build web search links", zap.String("query", query), zap.Error(err))
	} else {
		records = append(records, rec)
		o.metrics.RecordFallback(FallbackWebSearch)
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	return records, len(records)
}

// attachDiagnostics copies source failures onto the web-search fallback record.
func attachDiagnostics(records []packages.Record, diags []Diagnostic) {
	if len(diags) == 0 {
		return
	}
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		parts = append(parts, d.Error)
	}
	msg := "some sources failed: " + strings.Join(parts, "; ")
	for i := range records {
		if len(records[i].SearchLinks) > 0 {
			records[i].Diagnostic = msg
		}
	}
}

func (o *Orchestrator) resolveSite(ctx context.Context, query string) (siteURL string) {
	if o.site == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Official site resolver panicked", zap.String("query", query), zap.Any("panic", r))
			o.metrics.RecordFallback(FallbackOfficialError)
			siteURL = ""
		}
	}()

	siteURL, err := o.site.Resolve(ctx, query)
	switch {
	case err != nil:
		o.logger.Debug("Official site lookup failed", zap.String("query", query), zap.Error(err))
		o.metrics.RecordFallback(FallbackOfficialError)
		return ""
	case siteURL == "":
		o.metrics.RecordFallback(FallbackOfficialMiss)
	default:
		o.metrics.RecordFallback(FallbackOfficial)
	}
	return siteURL
}

func (o *Orchestrator) buildLinks(query string) (rec packages.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("link generator panicked: %v", r)
		}
	}()
	return o.links(query)
}

// Versions lists the versions of packageID in source, newest first.
func (o *Orchestrator) Versions(ctx context.Context, source packages.Source, packageID string) ([]string, error) {
	src, err := o.source(source)
	if err != nil {
		return nil, err
	}
	if packageID == "" {
		return nil, packages.ErrEmptyPackageID
	}

	ctx, span := o.tracer.Start(ctx, "source.versions", trace.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("package_id", packageID),
	))
	defer span.End()

	versions, err := src.Versions(ctx, packageID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &SourceError{Source: source, Err: err}
	}
	return versions, nil
}

// Command returns the install command for packageID in source. An empty version installs
// the latest release.
func (o *Orchestrator) Command(source packages.Source, packageID, version string) (string, error) {
	src, err := o.source(source)
	if err != nil {
		return "", err
	}
	return src.Command(packageID, version), nil
}

// ClearCache resets the caches of every source and the site resolver.
func (o *Orchestrator) ClearCache() {
	for _, id := range packages.RepositorySources {
		if src, ok := o.sources[id]; ok {
			src.ClearCache()
		}
	}
	if o.site != nil {
		o.site.ClearCache()
	}
	o.logger.Info("Pipeline caches cleared")
}

func (o *Orchestrator) source(id packages.Source) (Source, error) {
	src, ok := o.sources[id]
	if !ok {
		return nil, &packages.ValidationError{Field: "source", Message: fmt.Sprintf("source '%s' is not available", id)}
	}
	return src, nil
}
