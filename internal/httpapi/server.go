// Package httpapi exposes the resolution pipeline, installer, migration and
// history over a local JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/installer"
	"github.com/softfinder/softfinder-go/internal/migrate"
	"github.com/softfinder/softfinder-go/internal/observability"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/reqcontext"
	"github.com/softfinder/softfinder-go/internal/resolver"
	"github.com/softfinder/softfinder-go/internal/storage"
)

// Resolver is the search pipeline.
type Resolver interface {
	Search(ctx context.Context, req resolver.Request) resolver.Result
	Versions(ctx context.Context, source packages.Source, packageID string) ([]string, error)
	Command(source packages.Source, packageID, version string) (string, error)
	ClearCache()
}

// Installer runs install commands.
type Installer interface {
	Run(ctx context.Context, command string) (installer.Result, error)
}

// Migrator exports and imports installed-application lists.
type Migrator interface {
	Export(ctx context.Context) (*migrate.Document, error)
	Import(ctx context.Context, doc *migrate.Document) (*migrate.ImportSummary, error)
}

// History lists stored operations.
type History interface {
	List(filter storage.HistoryFilter) ([]*storage.HistoryRecord, error)
}

// Deps are the collaborators behind the API. Installer, Migrator and History
// may be nil; their routes then answer 503.
type Deps struct {
	Resolver  Resolver
	Installer Installer
	Migrator  Migrator
	History   History
	// Elevated reports the process elevation on install responses.
	Elevated func() bool
}

// Server provides the HTTP API
type Server struct {
	deps          Deps
	logger        *zap.Logger
	httpLogger    *zap.Logger
	router        chi.Router
	observability *observability.Manager
}

// NewServer creates a new HTTP API server. obs and httpLogger may be nil.
func NewServer(deps Deps, logger, httpLogger *zap.Logger, obs *observability.Manager) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpLogger == nil {
		httpLogger = zap.NewNop()
	}

	s := &Server{
		deps:          deps,
		logger:        logger.Named("httpapi"),
		httpLogger:    httpLogger,
		router:        chi.NewRouter(),
		observability: obs,
	}

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLoggerMiddleware(s.logger))
	if s.observability != nil {
		s.router.Use(s.observability.HTTPMiddleware())
	}
	s.router.Use(s.httpLoggingMiddleware())
	s.router.Use(middleware.Recoverer)

	if s.observability != nil {
		s.observability.SetupHTTPHandlers(s.router)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/command", s.handleCommand)
		r.Get("/versions", s.handleVersions)
		r.Post("/install", s.handleInstall)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/history", s.handleHistory)
		r.Delete("/cache", s.handleClearCache)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	resp := contracts.NewSuccessResponse(data)
	resp.RequestID = reqcontext.RequestID(r.Context())
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := contracts.NewErrorResponse(message)
	resp.RequestID = reqcontext.RequestID(r.Context())
	s.writeJSON(w, status, resp)
}

// writeErr maps pipeline errors to status codes.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var srcErr *resolver.SourceError
	switch {
	case packages.IsValidation(err):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &srcErr):
		s.writeError(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		reqcontext.Logger(r.Context(), s.logger).Error("Request failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
