package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cliclient"
	"github.com/softfinder/softfinder-go/internal/config"
	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/migrate"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/resolver"
	"github.com/softfinder/softfinder-go/internal/server"
	"github.com/softfinder/softfinder-go/internal/storage"
)

const pingTimeout = 500 * time.Millisecond

// backend is what one-shot commands run against: a running server or an in-process pipeline.
type backend interface {
	Search(ctx context.Context, query string, page, limit int, sources []string) (*contracts.SearchResponse, error)
	Command(ctx context.Context, source, packageID, version string) (*contracts.CommandResponse, error)
	Versions(ctx context.Context, source, packageID string) (*contracts.VersionsResponse, error)
	Install(ctx context.Context, command string) (*contracts.InstallResponse, error)
	Export(ctx context.Context) (*migrate.Document, error)
	Import(ctx context.Context, doc *migrate.Document) (*contracts.ImportResponse, error)
	History(ctx context.Context, kind string, limit int) (*contracts.HistoryResponse, error)
	ClearCache(ctx context.Context) (*contracts.CacheClearResponse, error)
	Close() error
}

// openBackend uses a running server on cfg.Listen when it answers /healthz, so the
// command shares its caches and history. Otherwise the pipeline runs in-process.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (backend, error) {
	if !standalone {
		client := cliclient.NewClient(cfg.Listen, logger.Sugar())
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := client.Ping(pingCtx)
		cancel()
		if err == nil {
			logger.Info("Detected running server, using client mode", zap.String("listen", cfg.Listen))
			return remoteBackend{client}, nil
		}
		logger.Debug("No server detected, using standalone mode", zap.Error(err))
	}

	srv, err := server.NewServer(cfg, logger, server.Options{Version: version})
	if err != nil {
		return nil, err
	}
	return &localBackend{srv: srv}, nil
}

type remoteBackend struct {
	*cliclient.Client
}

func (remoteBackend) Close() error { return nil }

// localBackend answers commands from an in-process server without listening.
type localBackend struct {
	srv *server.Server
}

func (b *localBackend) Search(ctx context.Context, query string, page, limit int, sources []string) (*contracts.SearchResponse, error) {
	var parsed []packages.Source
	for _, name := range sources {
		source, err := packages.ParseSource(name)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, source)
	}
	result := b.srv.Resolver().Search(ctx, resolver.Request{
		Query:   query,
		Page:    page,
		Limit:   limit,
		Sources: parsed,
	})
	resp := contracts.ConvertSearchResult(result)
	return &resp, nil
}

func (b *localBackend) Command(_ context.Context, source, packageID, version string) (*contracts.CommandResponse, error) {
	src, err := packages.ParseSource(source)
	if err != nil {
		return nil, err
	}
	command, err := b.srv.Resolver().Command(src, packageID, version)
	if err != nil {
		return nil, err
	}
	return &contracts.CommandResponse{
		Source:    string(src),
		PackageID: packageID,
		Version:   version,
		Command:   command,
	}, nil
}

func (b *localBackend) Versions(ctx context.Context, source, packageID string) (*contracts.VersionsResponse, error) {
	src, err := packages.ParseSource(source)
	if err != nil {
		return nil, err
	}
	versions, err := b.srv.Resolver().Versions(ctx, src, packageID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []string{}
	}
	resp := &contracts.VersionsResponse{Source: string(src), PackageID: packageID, Versions: versions}
	if len(versions) > 0 {
		resp.Latest = versions[0]
	}
	return resp, nil
}

func (b *localBackend) Install(ctx context.Context, command string) (*contracts.InstallResponse, error) {
	result, err := b.srv.Installer().Run(ctx, command)
	if err != nil {
		return nil, err
	}
	resp := contracts.ConvertInstallResult(result)
	return &resp, nil
}

func (b *localBackend) Export(ctx context.Context) (*migrate.Document, error) {
	return b.srv.Migrator().Export(ctx)
}

func (b *localBackend) Import(ctx context.Context, doc *migrate.Document) (*contracts.ImportResponse, error) {
	summary, err := b.srv.Migrator().Import(ctx, doc)
	if summary == nil {
		return nil, err
	}
	resp := contracts.ConvertImportSummary(summary)
	return &resp, err
}

func (b *localBackend) History(_ context.Context, kind string, limit int) (*contracts.HistoryResponse, error) {
	records, err := b.srv.History().List(storage.HistoryFilter{Kind: storage.HistoryKind(kind), Limit: limit})
	if err != nil {
		return nil, err
	}
	resp := contracts.ConvertHistory(records)
	return &resp, nil
}

func (b *localBackend) ClearCache(_ context.Context) (*contracts.CacheClearResponse, error) {
	b.srv.Resolver().ClearCache()
	return &contracts.CacheClearResponse{Cleared: true}, nil
}

func (b *localBackend) Close() error {
	return b.srv.Shutdown()
}
