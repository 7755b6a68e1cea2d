package website

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
	"github.com/softfinder/softfinder-go/internal/packages"
)

func resultLink(target, title string) string {
	return fmt.Sprintf(`<div class="result"><h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=%s&amp;rut=abc">%s</a></h2></div>`,
		url.QueryEscape(target), title)
}

func resultsPage(links ...string) string {
	return "<html><body><div id=\"links\">" + strings.Join(links, "\n") + "</div></body></html>"
}

func newResolver(t *testing.T, handler http.HandlerFunc, opts Options) (*Resolver, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	opts.SearchURL = server.URL + "/html/"
	opts.Timeout = 2 * time.Second
	return New(opts, cache.NewTTL[string]("web", time.Minute), zap.NewNop()), &hits
}

func TestExtractCandidates(t *testing.T) {
	page := resultsPage(
		resultLink("https://www.videolan.org/vlc/", "Official download of <b>VLC</b> media player"),
		`<a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.videolan.org%2Fvlc%2F">www.videolan.org</a>`,
		resultLink("https://en.wikipedia.org/wiki/VLC_media_player", "VLC media player - Wikipedia"),
		`<a href="/settings">Settings</a>`,
		`<a href="//duckduckgo.com/l/?uddg=javascript%3Aalert(1)">bad</a>`,
	)

	candidates, err := ExtractCandidates(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "https://www.videolan.org/vlc/", candidates[0].URL)
	assert.Equal(t, "Official download of VLC media player", candidates[0].Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/VLC_media_player", candidates[1].URL)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		app       string
		candidate Candidate
		want      int
	}{
		{
			name:      "official vendor page",
			app:       "vlc",
			candidate: Candidate{URL: "https://www.videolan.org/vlc/download-windows.html", Title: "Official download of VLC media player"},
			// title +3, url +2, official +2, download +1, .org +1
			want: 9,
		},
		{
			name:      "aggregator",
			app:       "vlc",
			candidate: Candidate{URL: "https://vlc.en.softonic.com/", Title: "VLC Media Player - Download"},
			// title +3, url +2, download +1, .com +1, denylist -5
			want: 2,
		},
		{
			name:      "unrelated",
			app:       "vlc",
			candidate: Candidate{URL: "https://example.de/page", Title: "Something else"},
			want:      0,
		},
		{
			name:      "multi word name matches url without spaces",
			app:       "Visual Studio Code",
			candidate: Candidate{URL: "https://visualstudiocode.example/get", Title: "Get it"},
			want:      2,
		},
		{
			name:      "code host subdomain is denied",
			app:       "tool",
			candidate: Candidate{URL: "https://docs.github.com/x", Title: "x"},
			// .com +1, denylist -5
			want: -4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.app, tt.candidate))
		})
	}
}

func TestRankCandidates_StableOnTies(t *testing.T) {
	ranked := rankCandidates("zzz", []Candidate{
		{URL: "https://a.example/"},
		{URL: "https://b.example/"},
		{URL: "https://c.com/"},
	})
	require.Len(t, ranked, 3)
	assert.Equal(t, "https://c.com/", ranked[0].URL)
	assert.Equal(t, "https://a.example/", ranked[1].URL)
	assert.Equal(t, "https://b.example/", ranked[2].URL)
}

func TestPickBest_Threshold(t *testing.T) {
	_, ok := pickBest([]Candidate{{Score: -3}})
	assert.False(t, ok)
	best, ok := pickBest([]Candidate{{URL: "x", Score: -2}})
	assert.True(t, ok)
	assert.Equal(t, "x", best.URL)
	_, ok = pickBest(nil)
	assert.False(t, ok)
}

func TestResolve_PicksBestCandidate(t *testing.T) {
	r, hits := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "official site Discord download", req.URL.Query().Get("q"))
		assert.NotEmpty(t, req.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(resultsPage(
			resultLink("https://en.wikipedia.org/wiki/Discord", "Discord - Wikipedia"),
			resultLink("https://discord.com/download", "Download Discord | Official site"),
		)))
	}, Options{})

	got, err := r.Resolve(context.Background(), "Discord")
	require.NoError(t, err)
	assert.Equal(t, "https://discord.com/download", got)

	again, err := r.Resolve(context.Background(), "  discord ")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestResolve_NoCandidatesIsCachedNone(t *testing.T) {
	r, hits := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(resultsPage()))
	}, Options{ProbeDomains: true, ProbeURLs: func(string) []string {
		t.Fatal("probing must not run without candidates")
		return nil
	}})

	got, err := r.Resolve(context.Background(), "xyznotreal123")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Resolve(context.Background(), "xyznotreal123")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestResolve_ScrapeFailureNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	r, hits := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		if fail.Load() {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(resultsPage(resultLink("https://www.7-zip.org/", "7-Zip official"))))
	}, Options{})

	_, err := r.Resolve(context.Background(), "7zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScrapeFailed))

	fail.Store(false)
	got, err := r.Resolve(context.Background(), "7zip")
	require.NoError(t, err)
	assert.Equal(t, "https://www.7-zip.org/", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestResolve_ProbesWhenNothingQualifies(t *testing.T) {
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodHead, req.Method)
		if req.URL.Path == "/good" {
			http.Redirect(w, req, "/landing", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer probe.Close()

	r, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(resultsPage(
			resultLink("https://github.com/someone/thing", "repo"),
			resultLink("https://sourceforge.net/projects/thing", "mirror"),
		)))
	}, Options{ProbeDomains: true, ProbeURLs: func(slug string) []string {
		assert.Equal(t, "myapp", slug)
		return []string{probe.URL + "/missing", probe.URL + "/good"}
	}})

	got, err := r.Resolve(context.Background(), "My App!")
	require.NoError(t, err)
	assert.Equal(t, probe.URL+"/good", got)
}

func TestResolve_ProbingDisabled(t *testing.T) {
	r, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(resultsPage(resultLink("https://github.com/x/y", "y"))))
	}, Options{ProbeDomains: false})

	got, err := r.Resolve(context.Background(), "qqq")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_EmptyName(t *testing.T) {
	r, hits := newResolver(t, func(w http.ResponseWriter, req *http.Request) {}, Options{})

	_, err := r.Resolve(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, packages.IsValidation(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestSlugAndProbeURLs(t *testing.T) {
	assert.Equal(t, "visualstudiocode", Slug("Visual Studio Code"))
	assert.Equal(t, "", Slug("日本"))
	assert.Equal(t, []string{
		"https://obs.com",
		"https://www.obs.com",
		"https://obs.org",
		"https://obs.io",
		"https://obsapp.com",
	}, DefaultProbeURLs("obs"))
}

func TestOfficialRecord(t *testing.T) {
	rec := OfficialRecord("discord", "https://discord.com/")
	assert.Equal(t, "discord", rec.Name)
	assert.Equal(t, packages.SourceWeb, rec.Source)
	assert.Equal(t, "https://discord.com/", rec.OfficialURL)
}
