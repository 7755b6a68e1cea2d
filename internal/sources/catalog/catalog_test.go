package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/packages"
)

const discordResponse = `{
  "Packages": [
    {
      "Id": "Discord.Discord",
      "Versions": ["1.0.9150", "1.0.9100", "1.0.9030"],
      "Latest": {
        "Name": "Discord",
        "Publisher": "Discord Inc.",
        "Tags": ["chat", "voice"],
        "Description": "All-in-one voice and text chat",
        "Homepage": "https://discord.com",
        "License": "Proprietary",
        "LicenseUrl": "https://discord.com/terms"
      }
    },
    {
      "Id": "Discord.Discord.PTB",
      "Versions": ["1.0.1100"],
      "Latest": {}
    }
  ],
  "Total": 7
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	pageCache := cache.NewTTL[packages.Page]("catalog", time.Minute)
	a := New(Options{BaseURL: server.URL + "/v2/packages", Timeout: 2 * time.Second}, pageCache, zap.NewNop())
	return a, &hits
}

func TestSearch_MapsRecords(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/packages", r.URL.Path)
		assert.Equal(t, "discord", r.URL.Query().Get("query"))
		assert.Equal(t, "24", r.URL.Query().Get("take"))
		assert.Equal(t, "0", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(discordResponse))
	})

	page, err := a.Search(context.Background(), "discord", 0, 24)
	require.NoError(t, err)

	require.Len(t, page.Records, 2)
	assert.Equal(t, 7, page.Total)

	first := page.Records[0]
	assert.Equal(t, "Discord", first.Name)
	assert.Equal(t, "Discord Inc.", first.Publisher)
	assert.Equal(t, "Discord.Discord", first.PackageID)
	assert.Equal(t, packages.SourceCatalog, first.Source)
	assert.Equal(t, []string{"1.0.9150", "1.0.9100", "1.0.9030"}, first.Versions)
	assert.Equal(t, "1.0.9150", first.LatestVersion)
	assert.Equal(t, "1.0.9150", first.SelectedVersion)
	assert.Equal(t, "winget install --id Discord.Discord -e --accept-source-agreements --accept-package-agreements", first.InstallCommand)
	assert.Equal(t, []string{"chat", "voice"}, first.Tags)
	assert.Equal(t, "https://discord.com", first.Homepage)
	assert.Equal(t, "https://discord.com/terms", first.LicenseURL)

	second := page.Records[1]
	assert.Equal(t, "Unknown Package", second.Name)
	assert.Equal(t, "Unknown Publisher", second.Publisher)
	assert.NotNil(t, second.Tags)
	assert.Empty(t, second.Tags)
}

func TestSearch_KeepsUpstreamVersionOrder(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Packages":[{"Id":"Nightly.App","Versions":["nightly-2024-05-01","1.2.0","1.2.0","1.10.0"]}],"Total":1}`))
	})

	page, err := a.Search(context.Background(), "nightly", 0, 24)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, []string{"nightly-2024-05-01", "1.2.0", "1.2.0", "1.10.0"}, page.Records[0].Versions)
	assert.Equal(t, "nightly-2024-05-01", page.Records[0].LatestVersion)
}

func TestSearch_ClampsPageSize(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "24", r.URL.Query().Get("take"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"Packages":[],"Total":0}`))
	})

	page, err := a.Search(context.Background(), "vlc", 3, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 0, page.Total)
}

func TestSearch_TotalFallsBackToRecordCount(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Packages":[{"Id":"A.A"},{"Id":"B.B"}]}`))
	})

	page, err := a.Search(context.Background(), "ab", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Empty(t, page.Records[0].LatestVersion)
}

func TestSearch_CacheHitSkipsNetwork(t *testing.T) {
	a, hits := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(discordResponse))
	})

	first, err := a.Search(context.Background(), "Discord", 0, 24)
	require.NoError(t, err)
	second, err := a.Search(context.Background(), "discord", 0, 24)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, first, second)

	// Callers mutating a returned page must not corrupt the cache
	second.Records[0].Name = "changed"
	third, err := a.Search(context.Background(), "discord", 0, 24)
	require.NoError(t, err)
	assert.Equal(t, "Discord", third.Records[0].Name)

	// Different page is a different key
	_, err = a.Search(context.Background(), "discord", 1, 24)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))

	a.ClearCache()
	_, err = a.Search(context.Background(), "discord", 0, 24)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestSearch_Failures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})
		page, err := a.Search(context.Background(), "discord", 0, 24)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		assert.Empty(t, page.Records)
		assert.Equal(t, 0, a.Caches()[0].GetStats().TotalEntries, "failures are not cached")
	})

	t.Run("invalid json", func(t *testing.T) {
		a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := a.Search(context.Background(), "discord", 0, 24)
		require.Error(t, err)
	})

	t.Run("transport failure", func(t *testing.T) {
		a := New(Options{BaseURL: "http://127.0.0.1:1/v2/packages", Timeout: time.Second}, nil, zap.NewNop())
		_, err := a.Search(context.Background(), "discord", 0, 24)
		require.Error(t, err)
	})

	t.Run("empty query", func(t *testing.T) {
		a, hits := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := a.Search(context.Background(), "   ", 0, 24)
		require.ErrorIs(t, err, packages.ErrEmptyQuery)
		assert.Equal(t, int32(0), atomic.LoadInt32(hits))
	})
}

func TestVersions(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(discordResponse))
	})

	versions, err := a.Versions(context.Background(), "discord.discord")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.9150", "1.0.9100", "1.0.9030"}, versions)

	_, err = a.Versions(context.Background(), "Nope.Nope")
	assert.Error(t, err)

	_, err = a.Versions(context.Background(), "")
	assert.ErrorIs(t, err, packages.ErrEmptyPackageID)
}

func TestCommand(t *testing.T) {
	assert.Equal(t, "", Command("", "1.0"))
	assert.Equal(t, "", Command("   ", ""))
	assert.Equal(t,
		"winget install --id VideoLAN.VLC -e --accept-source-agreements --accept-package-agreements --version 3.0.20",
		Command("VideoLAN.VLC", "3.0.20"))
}

func TestCommand_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z0-9]{1,12}\.[A-Za-z0-9]{1,12}`).Draw(t, "id")
		version := rapid.StringMatching(`([0-9]{1,3}\.){0,3}[0-9]{1,3}`).Draw(t, "version")

		first := Command(id, version)
		if first != Command(id, version) {
			t.Fatalf("command is not deterministic for %q %q", id, version)
		}
		if !strings.Contains(first, "--id "+id+" ") {
			t.Fatalf("command %q does not carry id %q", first, id)
		}
		if !strings.HasSuffix(first, "--version "+version) {
			t.Fatalf("command %q does not pin version %q", first, version)
		}
	})
}
