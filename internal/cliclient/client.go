// Package cliclient lets CLI commands reach a running `softfinder serve` over its HTTP API.
package cliclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/migrate"
)

// Client provides HTTP API access for CLI commands.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// APIError is a failed API call. RequestID is set when the server reported one.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return e.Message
}

// HasRequestID reports whether the server returned a request id.
func (e *APIError) HasRequestID() bool {
	return e.RequestID != ""
}

// FormatWithRequestID renders the error with its request id for log correlation.
func (e *APIError) FormatWithRequestID() string {
	if !e.HasRequestID() {
		return e.Message
	}
	return fmt.Sprintf("%s (request_id: %s)", e.Message, e.RequestID)
}

// NewClient creates a client for endpoint, either a base URL or a host:port listen address.
func NewClient(endpoint string, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	baseURL := strings.TrimRight(endpoint, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 35 * time.Minute, // installs may run for the installer timeout
		},
		logger: logger,
	}
}

// Ping checks if the server is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// Search runs GET /api/v1/search. A nil sources slice uses the server defaults.
func (c *Client) Search(ctx context.Context, query string, page, limit int, sources []string) (*contracts.SearchResponse, error) {
	q := url.Values{"q": {query}}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if sources != nil {
		q.Set("sources", strings.Join(sources, ","))
	}
	var out contracts.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Command runs GET /api/v1/command.
func (c *Client) Command(ctx context.Context, source, packageID, version string) (*contracts.CommandResponse, error) {
	q := url.Values{"source": {source}, "id": {packageID}}
	if version != "" {
		q.Set("version", version)
	}
	var out contracts.CommandResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/command", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Versions runs GET /api/v1/versions.
func (c *Client) Versions(ctx context.Context, source, packageID string) (*contracts.VersionsResponse, error) {
	var out contracts.VersionsResponse
	q := url.Values{"source": {source}, "id": {packageID}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/versions", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Install runs POST /api/v1/install.
func (c *Client) Install(ctx context.Context, command string) (*contracts.InstallResponse, error) {
	var out contracts.InstallResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/install", nil, contracts.InstallRequest{Command: command}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export runs GET /api/v1/export.
func (c *Client) Export(ctx context.Context) (*migrate.Document, error) {
	var out migrate.Document
	if err := c.do(ctx, http.MethodGet, "/api/v1/export", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Import runs POST /api/v1/import with doc as body.
func (c *Client) Import(ctx context.Context, doc *migrate.Document) (*contracts.ImportResponse, error) {
	var out contracts.ImportResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/import", nil, doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History runs GET /api/v1/history.
func (c *Client) History(ctx context.Context, kind string, limit int) (*contracts.HistoryResponse, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", kind)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out contracts.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCache runs DELETE /api/v1/cache.
func (c *Client) ClearCache(ctx context.Context) (*contracts.CacheClearResponse, error) {
	var out contracts.CacheClearResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/cache", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and unwraps the {success, data, error, request_id} envelope into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugw("Calling API", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		Error     string          `json:"error"`
		RequestID string          `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if !envelope.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := envelope.Error
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, RequestID: envelope.RequestID}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
