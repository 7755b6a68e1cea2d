package websearch

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/softfinder/softfinder-go/internal/packages"
)

func TestLinks(t *testing.T) {
	links, err := Links("visual studio code")
	require.NoError(t, err)
	require.Len(t, links, len(Engines()))

	assert.Equal(t, "Google", links[0].Engine)
	assert.Equal(t, "https://www.google.com/search?q=visual+studio+code+download", links[0].URL)
	assert.Equal(t, "Bing", links[1].Engine)
	assert.Equal(t, "winget.run", links[len(links)-1].Engine)
	assert.Equal(t, "https://winget.run/search?query=visual+studio+code", links[len(links)-1].URL)
}

func TestLinks_EscapesQuery(t *testing.T) {
	links, err := Links("c++ & friends")
	require.NoError(t, err)
	for _, l := range links {
		assert.NotContains(t, l.URL, " ")
		assert.NotContains(t, l.URL, "c++ &")
		assert.Contains(t, l.URL, "c%2B%2B+%26+friends")
	}
}

func TestLinks_EmptyQuery(t *testing.T) {
	_, err := Links("   ")
	require.Error(t, err)
	assert.True(t, packages.IsValidation(err))
}

func TestFallbackRecord(t *testing.T) {
	r, err := FallbackRecord("xyznotreal123")
	require.NoError(t, err)
	assert.Equal(t, `Search for "xyznotreal123" online`, r.Name)
	assert.Equal(t, packages.SourceWeb, r.Source)
	assert.Empty(t, r.PackageID)
	assert.Empty(t, r.InstallCommand)
	assert.Len(t, r.SearchLinks, len(Engines()))
}

func TestLinks_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rapid.StringN(1, 100, -1).Filter(func(s string) bool {
			return strings.TrimSpace(s) != ""
		}).Draw(t, "query")

		links, err := Links(q)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", q, err)
		}
		if len(links) != len(engines) {
			t.Fatalf("got %d links", len(links))
		}
		for i, l := range links {
			if l.Engine != engines[i].name {
				t.Fatalf("engine order changed at %d", i)
			}
			u, err := url.Parse(l.URL)
			if err != nil {
				t.Fatalf("invalid url %q: %v", l.URL, err)
			}
			if u.Scheme != "https" {
				t.Fatalf("unexpected scheme in %q", l.URL)
			}
		}
	})
}
