// Package server wires the resolution pipeline, installer, migration service and
// history store from configuration and serves them over the local HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/cmdrunner"
	"github.com/softfinder/softfinder-go/internal/config"
	"github.com/softfinder/softfinder-go/internal/httpapi"
	"github.com/softfinder/softfinder-go/internal/installer"
	"github.com/softfinder/softfinder-go/internal/logs"
	"github.com/softfinder/softfinder-go/internal/migrate"
	"github.com/softfinder/softfinder-go/internal/observability"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/resolver"
	"github.com/softfinder/softfinder-go/internal/sources/catalog"
	"github.com/softfinder/softfinder-go/internal/sources/choco"
	"github.com/softfinder/softfinder-go/internal/storage"
	"github.com/softfinder/softfinder-go/internal/website"
)

const shutdownTimeout = 5 * time.Second

// Options overrides collaborators that are normally derived from the configuration.
type Options struct {
	// Version is reported as the tracing service version.
	Version string
	// Runner executes choco, winget and install commands. Defaults to cmdrunner.Exec.
	Runner cmdrunner.Runner
	// HTTPClient is used by the catalog adapter and the website resolver when set.
	HTTPClient *http.Client
	// Notifier replaces the desktop notifier.
	Notifier installer.Notifier
}

// Server owns every long-lived component of the application.
type Server struct {
	config         *config.Config
	logger         *zap.Logger
	storageManager *storage.Manager
	observability  *observability.Manager
	history        *meteredHistory

	catalog   *catalog.Adapter
	choco     *choco.Adapter
	website   *website.Resolver
	resolver  *resolver.Orchestrator
	installer *installer.Executor
	migrator  *migrate.Service
	api       *httpapi.Server

	httpServer *http.Server
	listenAddr string
	running    bool
	mu         sync.RWMutex
}

// NewServer builds all components from cfg. The history database is opened in cfg.DataDir.
func NewServer(cfg *config.Config, logger *zap.Logger, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = cmdrunner.Exec{}
	}

	obsCfg := observability.DefaultConfig("softfinder", opts.Version)
	if cfg.Tracing != nil {
		obsCfg.Tracing.Enabled = cfg.Tracing.Enabled
		obsCfg.Tracing.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
		obsCfg.Tracing.SampleRate = cfg.Tracing.SampleRate
	}
	obs, err := observability.NewManager(logger.Sugar(), obsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	storageManager, err := storage.NewManager(cfg.DataDir, logger.Sugar())
	if err != nil {
		_ = obs.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize storage manager: %w", err)
	}

	s := &Server{
		config:         cfg,
		logger:         logger,
		storageManager: storageManager,
		observability:  obs,
		history:        &meteredHistory{store: storageManager, obs: obs},
	}
	s.buildPipeline(runner, opts.HTTPClient)
	s.buildCollaborators(runner, opts.Notifier)
	s.registerHealthCheckers()

	s.api = httpapi.NewServer(httpapi.Deps{
		Resolver:  s.resolver,
		Installer: s.installer,
		Migrator:  s.migrator,
		History:   s.history,
		Elevated:  installer.IsElevated,
	}, logger, s.httpLogger(), obs)

	return s, nil
}

func (s *Server) buildPipeline(runner cmdrunner.Runner, client *http.Client) {
	cfg := s.config
	repoTTL := cache.RepositoryTTL
	siteTTL := cache.WebsiteTTL
	if cfg.Cache != nil {
		repoTTL = cfg.Cache.RepositoryTTL.Std()
		siteTTL = cfg.Cache.WebsiteTTL.Std()
	}
	cacheOpt := cache.WithLogger(s.logger)

	catalogOpts := catalog.Options{HTTPClient: client}
	chocoOpts := choco.Options{Runner: runner}
	if cfg.Sources != nil {
		if c := cfg.Sources.Catalog; c != nil {
			catalogOpts.BaseURL = c.URL
			catalogOpts.Timeout = c.Timeout.Std()
			catalogOpts.MaxPageSize = c.MaxPageSize
		}
		if c := cfg.Sources.Chocolatey; c != nil {
			chocoOpts.Binary = c.Binary
			chocoOpts.Timeout = c.Timeout.Std()
		}
	}
	websiteOpts := website.Options{HTTPClient: client}
	if w := cfg.Website; w != nil {
		websiteOpts.SearchURL = w.SearchURL
		websiteOpts.Timeout = w.Timeout.Std()
		websiteOpts.ProbeDomains = w.ProbeDomains
		websiteOpts.ProbeTimeout = w.ProbeTimeout.Std()
	}

	s.catalog = catalog.New(catalogOpts,
		cache.NewTTL[packages.Page](string(packages.SourceCatalog), repoTTL, cacheOpt), s.logger)
	s.choco = choco.New(chocoOpts,
		cache.NewTTL[packages.Page](string(packages.SourceSecondary), repoTTL, cacheOpt), s.logger)
	s.website = website.New(websiteOpts,
		cache.NewTTL[string](string(packages.SourceWeb), siteTTL, cacheOpt), s.logger)

	s.resolver = resolver.New(s.logger,
		resolver.WithSource(s.catalog),
		resolver.WithSource(s.choco),
		resolver.WithSiteResolver(s.website),
		resolver.WithRecorder(s.observability),
		resolver.WithEnabled(enabledSources(cfg, s.logger)...),
		resolver.WithDefaultLimit(pageSize(cfg)),
	)

	var providers []cache.StatsProvider
	providers = append(providers, s.catalog.Caches()...)
	providers = append(providers, s.choco.Caches()...)
	providers = append(providers, s.website.Caches()...)
	s.observability.TrackCaches(providers...)
}

func (s *Server) buildCollaborators(runner cmdrunner.Runner, notifier installer.Notifier) {
	cfg := s.config
	if notifier == nil && cfg.Notifications {
		notifier = installer.DesktopNotifier{}
	}

	s.installer = installer.New(installer.Options{
		Runner:    runner,
		History:   s.history,
		Notifier:  notifier,
		Recorder:  s.observability,
		LogConfig: cfg.Logging,
	}, s.logger)

	binary, timeout := config.DefaultWingetBinary, time.Duration(0)
	if cfg.Sources != nil && cfg.Sources.Winget != nil {
		binary = cfg.Sources.Winget.Binary
		timeout = cfg.Sources.Winget.Timeout.Std()
	}
	enumerator := migrate.NewEnumerator(runner, binary, timeout, s.logger)
	s.migrator = migrate.NewService(enumerator, s.installer, catalog.Command, s.history, s.logger)
}

// registerHealthCheckers wires the history database into /healthz and /readyz.
// Missing package manager binaries only degrade their source, so they are logged, not checked.
func (s *Server) registerHealthCheckers() {
	db := observability.NewDatabaseHealthChecker("history", s.storageManager.GetDB())
	s.observability.RegisterHealthChecker(db)
	s.observability.RegisterReadinessChecker(db)
	s.observability.RegisterReadinessChecker(observability.NewComponentHealthChecker("resolver",
		func(context.Context) error {
			if len(s.resolver.Enabled()) == 0 {
				return errors.New("no sources enabled")
			}
			return nil
		}))

	chocoBinary, wingetBinary := config.DefaultChocoBinary, config.DefaultWingetBinary
	if src := s.config.Sources; src != nil {
		if src.Chocolatey != nil && src.Chocolatey.Binary != "" {
			chocoBinary = src.Chocolatey.Binary
		}
		if src.Winget != nil && src.Winget.Binary != "" {
			wingetBinary = src.Winget.Binary
		}
	}
	for _, checker := range []*observability.BinaryHealthChecker{
		observability.NewBinaryHealthChecker(string(packages.SourceSecondary), chocoBinary),
		observability.NewBinaryHealthChecker("winget", wingetBinary),
	} {
		if err := checker.HealthCheck(context.Background()); err != nil {
			s.logger.Info("Package manager binary unavailable",
				zap.String("component", checker.Name()),
				zap.Error(err))
		}
	}
}

func (s *Server) httpLogger() *zap.Logger {
	logger, err := logs.CreateHTTPLogger(s.config.Logging)
	if err != nil {
		s.logger.Warn("Failed to create HTTP access logger", zap.Error(err))
		return zap.NewNop()
	}
	return logger
}

// Resolver returns the search orchestrator.
func (s *Server) Resolver() *resolver.Orchestrator { return s.resolver }

// Installer returns the install executor.
func (s *Server) Installer() *installer.Executor { return s.installer }

// Migrator returns the export/import service.
func (s *Server) Migrator() *migrate.Service { return s.migrator }

// History returns the history store with operation metrics.
func (s *Server) History() httpapi.History { return s.history }

// Observability returns the observability manager.
func (s *Server) Observability() *observability.Manager { return s.observability }

// Handler returns the HTTP API handler.
func (s *Server) Handler() http.Handler { return s.api }

// Config returns the active configuration.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// ApplyConfig re-applies the settings that can change without a restart:
// the default source set and the default page size.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	s.resolver.SetEnabled(enabledSources(cfg, s.logger))
	s.resolver.SetDefaultLimit(pageSize(cfg))
	s.logger.Info("Applied configuration",
		zap.Any("sources", s.resolver.Enabled()),
		zap.Int("page_size", pageSize(cfg)))
}

// Start serves the HTTP API on the configured listen address until ctx is cancelled.
// A listen address already in use is reported as *PortInUseError.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	addr := s.config.Listen

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		if isAddrInUseError(err) {
			return &PortInUseError{Address: addr, Err: err}
		}
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.api,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listenAddr = ln.Addr().String()
	s.running = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("HTTP API listening", zap.String("address", s.listenAddr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.markStopped()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Context cancelled, stopping HTTP API")
		return s.StopServer()
	}
}

// StopServer gracefully shuts down the HTTP listener. It is a no-op when not running.
func (s *Server) StopServer() error {
	s.mu.Lock()
	httpServer := s.httpServer
	running := s.running
	s.mu.Unlock()
	if !running || httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("Failed to gracefully shutdown HTTP server, forcing close", zap.Error(err))
		if closeErr := httpServer.Close(); closeErr != nil {
			s.logger.Error("Error forcing HTTP server close", zap.Error(closeErr))
		}
	}
	s.markStopped()
	s.logger.Info("HTTP API stopped")
	return nil
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.running = false
	s.httpServer = nil
	s.mu.Unlock()
}

// IsRunning reports whether the HTTP API is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetListenAddress returns the bound address while running, else the configured one.
func (s *Server) GetListenAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listenAddr != "" {
		return s.listenAddr
	}
	return s.config.Listen
}

// Shutdown stops the HTTP API and releases the history database and tracing exporter.
func (s *Server) Shutdown() error {
	var errs []error
	if err := s.StopServer(); err != nil {
		errs = append(errs, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.observability.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close observability: %w", err))
	}
	if err := s.storageManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}

func enabledSources(cfg *config.Config, logger *zap.Logger) []packages.Source {
	var out []packages.Source
	for _, name := range cfg.EnabledSources() {
		source, err := packages.ParseSource(name)
		if err != nil || source == packages.SourceWeb {
			logger.Warn("Ignoring unknown source in configuration", zap.String("source", name))
			continue
		}
		out = append(out, source)
	}
	return out
}

func pageSize(cfg *config.Config) int {
	if cfg.Search != nil && cfg.Search.PageSize > 0 {
		return cfg.Search.PageSize
	}
	return config.DefaultPageSize
}
