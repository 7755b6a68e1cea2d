package cliclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softfinder/softfinder-go/internal/cliclient"
	"github.com/softfinder/softfinder-go/internal/contracts"
	"github.com/softfinder/softfinder-go/internal/migrate"
)

func writeEnvelope(w http.ResponseWriter, status int, resp contracts.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "vlc", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "catalog,choco", r.URL.Query().Get("sources"))
		writeEnvelope(w, http.StatusOK, contracts.NewSuccessResponse(contracts.SearchResponse{
			Query: "vlc", Page: 1, Status: "ok", HasMore: true,
		}))
	}))
	defer server.Close()

	client := cliclient.NewClient(server.URL, nil)
	resp, err := client.Search(context.Background(), "vlc", 1, 0, []string{"catalog", "choco"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.HasMore)
}

func TestClient_SearchOmitsSourcesWhenNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["sources"]
		assert.False(t, present)
		writeEnvelope(w, http.StatusOK, contracts.NewSuccessResponse(contracts.SearchResponse{}))
	}))
	defer server.Close()

	_, err := cliclient.NewClient(server.URL, nil).Search(context.Background(), "vlc", 0, 0, nil)
	require.NoError(t, err)
}

func TestClient_APIErrorCarriesRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := contracts.NewErrorResponse("unknown source 'apt'")
		resp.RequestID = "req-123"
		writeEnvelope(w, http.StatusBadRequest, resp)
	}))
	defer server.Close()

	_, err := cliclient.NewClient(server.URL, nil).Command(context.Background(), "apt", "vlc", "")
	require.Error(t, err)

	var apiErr *cliclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, apiErr.HasRequestID())
	assert.Equal(t, "unknown source 'apt' (request_id: req-123)", apiErr.FormatWithRequestID())
}

func TestClient_InstallPostsCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req contracts.InstallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeEnvelope(w, http.StatusOK, contracts.NewSuccessResponse(contracts.InstallResponse{
			Command: req.Command, Outcome: "success",
		}))
	}))
	defer server.Close()

	resp, err := cliclient.NewClient(server.URL, nil).Install(context.Background(), "choco install vlc -y")
	require.NoError(t, err)
	assert.Equal(t, "choco install vlc -y", resp.Command)
	assert.Equal(t, "success", resp.Outcome)
}

func TestClient_ImportAndExport(t *testing.T) {
	doc := &migrate.Document{Apps: []migrate.App{{Name: "VLC", PackageID: "VideoLAN.VLC"}}, TotalApps: 1}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/export":
			writeEnvelope(w, http.StatusOK, contracts.NewSuccessResponse(doc))
		case "/api/v1/import":
			var got migrate.Document
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "VideoLAN.VLC", got.Apps[0].PackageID)
			writeEnvelope(w, http.StatusOK, contracts.NewSuccessResponse(contracts.ImportResponse{Status: "success", Total: 1}))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := cliclient.NewClient(server.URL, nil)
	exported, err := client.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, exported.TotalApps)

	summary, err := client.Import(context.Background(), exported)
	require.NoError(t, err)
	assert.Equal(t, "success", summary.Status)
}

func TestClient_Ping(t *testing.T) {
	var unhealthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := cliclient.NewClient(server.URL, nil)
	require.NoError(t, client.Ping(context.Background()))

	unhealthy.Store(true)
	assert.Error(t, client.Ping(context.Background()))
}

func TestClient_ListenAddressEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := cliclient.NewClient(server.Listener.Addr().String(), nil)
	assert.NoError(t, client.Ping(context.Background()))
}
