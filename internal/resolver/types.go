package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/softfinder/softfinder-go/internal/packages"
)

// Status tags how a search result was produced.
type Status string

const (
	// StatusOK means every enabled source answered and at least one record matched.
	StatusOK Status = "ok"
	// StatusDegraded means at least one source failed; the records are whatever was left.
	StatusDegraded Status = "degraded"
	// StatusFallback means every source answered but none matched, so fallback records were served.
	StatusFallback Status = "fallback"
	// StatusEmpty means the query was empty after normalization.
	StatusEmpty Status = "empty"
)

// Source is a package repository the orchestrator fans out to.
type Source interface {
	Source() packages.Source
	Search(ctx context.Context, query string, page, limit int) (packages.Page, error)
	Versions(ctx context.Context, packageID string) ([]string, error)
	Command(packageID, version string) string
	ClearCache()
}

// SiteResolver finds the official website of an application.
type SiteResolver interface {
	Resolve(ctx context.Context, appName string) (string, error)
	ClearCache()
}

// LinkGenerator builds the web-search fallback record.
type LinkGenerator func(query string) (packages.Record, error)

// Recorder receives pipeline metrics.
type Recorder interface {
	RecordSourceRequest(source, status string, duration time.Duration)
	RecordFallback(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSourceRequest(string, string, time.Duration) {}
func (nopRecorder) RecordFallback(string)                             {}

// SourceError is a recoverable failure of one source. It never aborts a search.
type SourceError struct {
	Source packages.Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Diagnostic reports a failed source in a result.
type Diagnostic struct {
	Source packages.Source `json:"source"`
	Error  string          `json:"error"`
}

// Request is one search call.
type Request struct {
	Query string
	Page  int
	Limit int
	// Sources restricts the search. Nil uses the orchestrator defaults; an empty,
	// non-nil slice searches no repository and goes straight to the fallback chain.
	Sources []packages.Source
}

// Result is the outcome of a search. It is always usable: failures surface only in
// Status and Diagnostics.
type Result struct {
	Query        string            `json:"query"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
	Records      []packages.Record `json:"records"`
	Total        int               `json:"total"`
	Status       Status            `json:"status"`
	FallbackUsed bool              `json:"fallback_used"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty"`
}

// HasMore reports whether another page may exist. A page is assumed to be followed by
// another when it came back full; fallback results never have more.
func (r Result) HasMore() bool {
	if r.FallbackUsed {
		return false
	}
	return HasMore(len(r.Records), r.Limit)
}

// HasMore is the full-page approximation: count == limit.
func HasMore(count, limit int) bool {
	return limit > 0 && count == limit
}
