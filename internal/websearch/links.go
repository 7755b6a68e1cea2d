// Package websearch builds the "search for it online" fallback links.
package websearch

import (
	"net/url"
	"strings"

	"github.com/softfinder/softfinder-go/internal/packages"
)

type engine struct {
	name   string
	prefix string
	suffix string
}

// engines is the fixed, ordered roster. The query is appended to prefix, query-escaped.
var engines = []engine{
	{name: "Google", prefix: "https://www.google.com/search?q=", suffix: "+download"},
	{name: "Bing", prefix: "https://www.bing.com/search?q=", suffix: "+download"},
	{name: "DuckDuckGo", prefix: "https://duckduckgo.com/?q=", suffix: "+download"},
	{name: "Softpedia", prefix: "https://www.softpedia.com/dyn-search.php?search_term="},
	{name: "AlternativeTo", prefix: "https://alternativeto.net/browse/search/?q="},
	{name: "Chocolatey Community", prefix: "https://community.chocolatey.org/packages?q="},
	{name: "winget.run", prefix: "https://winget.run/search?query="},
}

// Engines returns the names of the engines in roster order.
func Engines() []string {
	names := make([]string, len(engines))
	for i, e := range engines {
		names[i] = e.name
	}
	return names
}

// Links returns one search URL per engine for query. An empty query is a validation error.
func Links(query string) ([]packages.SearchLink, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &packages.ValidationError{Field: "query", Message: "query is required for web search links"}
	}

	escaped := url.QueryEscape(query)
	links := make([]packages.SearchLink, 0, len(engines))
	for _, e := range engines {
		links = append(links, packages.SearchLink{
			Engine: e.name,
			URL:    e.prefix + escaped + e.suffix,
		})
	}
	return links, nil
}

// FallbackRecord builds the web-search fallback record for query.
func FallbackRecord(query string) (packages.Record, error) {
	links, err := Links(query)
	if err != nil {
		return packages.Record{}, err
	}
	return packages.Record{
		Name:        `Search for "` + strings.TrimSpace(query) + `" online`,
		Source:      packages.SourceWeb,
		SearchLinks: links,
	}, nil
}
