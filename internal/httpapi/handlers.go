package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/migrate"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/resolver"
	"github.com/softfinder/softfinder-go/internal/storage"
)

// maxBodyBytes bounds install and import request bodies.
const maxBodyBytes = 4 << 20

// GET /api/v1/search?q=&page=&limit=&sources=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	sources, err := parseSources(q["sources"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	result := s.deps.Resolver.Search(r.Context(), resolver.Request{
		Query:   q.Get("q"),
		Page:    page,
		Limit:   limit,
		Sources: sources,
	})
	s.writeSuccess(w, r, contracts.ConvertSearchResult(result))
}

// GET /api/v1/command?source=&id=&version=
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	source, id, err := sourceAndID(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	version := strings.TrimSpace(r.URL.Query().Get("version"))

	command, err := s.deps.Resolver.Command(source, id, version)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, r, contracts.CommandResponse{
		Source:    string(source),
		PackageID: id,
		Version:   version,
		Command:   command,
	})
}

// GET /api/v1/versions?source=&id=
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	source, id, err := sourceAndID(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	versions, err := s.deps.Resolver.Versions(r.Context(), source, id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if versions == nil {
		versions = []string{}
	}
	resp := contracts.VersionsResponse{Source: string(source), PackageID: id, Versions: versions}
	if len(versions) > 0 {
		resp.Latest = versions[0]
	}
	s.writeSuccess(w, r, resp)
}

// POST /api/v1/install {"command": "..."}
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	if s.deps.Installer == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "installer is not available")
		return
	}

	var req contracts.InstallRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := s.deps.Installer.Run(r.Context(), req.Command)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	resp := contracts.ConvertInstallResult(result)
	if s.deps.Elevated != nil {
		elevated := s.deps.Elevated()
		resp.Elevated = &elevated
	}
	s.writeSuccess(w, r, resp)
}

// GET /api/v1/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Migrator == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "migration is not available")
		return
	}

	doc, err := s.deps.Migrator.Export(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, r, doc)
}

// POST /api/v1/import with an export document as body
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Migrator == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "migration is not available")
		return
	}

	doc, err := migrate.ReadDocument(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	summary, err := s.deps.Migrator.Import(r.Context(), doc)
	if err != nil && summary == nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, r, contracts.ConvertImportSummary(summary))
}

// GET /api/v1/history?limit=&kind=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "history is not available")
		return
	}

	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	filter := storage.HistoryFilter{
		Kind:  storage.HistoryKind(r.URL.Query().Get("kind")),
		Limit: limit,
	}

	records, err := s.deps.History.List(filter)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, r, contracts.ConvertHistory(records))
}

// DELETE /api/v1/cache
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.deps.Resolver.ClearCache()
	s.writeSuccess(w, r, contracts.CacheClearResponse{Cleared: true})
}

// intParam parses an optional integer query parameter; "" yields 0.
func intParam(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &packages.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

// parseSources accepts repeated and comma-separated values. Absent means the
// configured defaults (nil).
func parseSources(values []string) ([]packages.Source, error) {
	if len(values) == 0 {
		return nil, nil
	}
	sources := make([]packages.Source, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			source, err := packages.ParseSource(part)
			if err != nil {
				return nil, err
			}
			sources = append(sources, source)
		}
	}
	return sources, nil
}

func sourceAndID(r *http.Request) (packages.Source, string, error) {
	source, err := packages.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		return "", "", packages.ErrEmptyPackageID
	}
	return source, id, nil
}
