// Package contracts defines the JSON bodies of the HTTP API.
package contracts

import (
	"time"

	"github.com/softfinder/softfinder-go/internal/packages"
)

// APIResponse is the standard wrapper for all API responses
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Diagnostic reports a failed source in a search response
type Diagnostic struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// SearchResponse is the body of GET /api/v1/search
type SearchResponse struct {
	Query        string            `json:"query"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
	Total        int               `json:"total"`
	HasMore      bool              `json:"has_more"`
	Status       string            `json:"status"`
	FallbackUsed bool              `json:"fallback_used"`
	Records      []packages.Record `json:"records"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty"`
}

// CommandResponse is the body of GET /api/v1/command
type CommandResponse struct {
	Source    string `json:"source"`
	PackageID string `json:"package_id"`
	Version   string `json:"version,omitempty"`
	Command   string `json:"command"`
}

// VersionsResponse is the body of GET /api/v1/versions
type VersionsResponse struct {
	Source    string   `json:"source"`
	PackageID string   `json:"package_id"`
	Versions  []string `json:"versions"`
	Latest    string   `json:"latest,omitempty"`
}

// InstallRequest is the body of POST /api/v1/install
type InstallRequest struct {
	Command string `json:"command"`
}

// InstallResponse is the result of one install run
type InstallResponse struct {
	Command    string `json:"command"`
	PackageID  string `json:"package_id,omitempty"`
	Outcome    string `json:"outcome"`
	ExitCode   int    `json:"exit_code"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	HistoryID  string `json:"history_id,omitempty"`
	Elevated   *bool  `json:"elevated,omitempty"`
}

// ImportAppResult is the outcome of one imported app
type ImportAppResult struct {
	Name      string `json:"name"`
	PackageID string `json:"package_id"`
	Command   string `json:"command"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// ImportResponse is the body of POST /api/v1/import
type ImportResponse struct {
	Status         string            `json:"status"`
	Total          int               `json:"total"`
	Installed      []ImportAppResult `json:"installed"`
	Failed         []ImportAppResult `json:"failed"`
	NeedsElevation []ImportAppResult `json:"needs_elevation"`
}

// HistoryEntry is one stored operation
type HistoryEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Command   string    `json:"command,omitempty"`
	PackageID string    `json:"package_id,omitempty"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Created   time.Time `json:"created"`
}

// HistoryResponse is the body of GET /api/v1/history
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Count   int            `json:"count"`
}

// CacheClearResponse is the body of DELETE /api/v1/cache
type CacheClearResponse struct {
	Cleared bool `json:"cleared"`
}
