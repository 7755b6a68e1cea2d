package packages

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxQueryLength is the maximum normalized query length in characters.
const MaxQueryLength = 100

// NormalizeQuery trims the query, strips angle brackets, collapses whitespace runs to
// a single space and truncates to MaxQueryLength characters. An empty result means
// there is nothing to search for.
func NormalizeQuery(raw string) string {
	stripped := strings.NewReplacer("<", "", ">", "").Replace(raw)
	normalized := strings.Join(strings.Fields(stripped), " ")
	if utf8.RuneCountInString(normalized) > MaxQueryLength {
		runes := []rune(normalized)
		normalized = strings.TrimSpace(string(runes[:MaxQueryLength]))
	}
	return normalized
}

// CacheKey builds the repository cache key: lowercase(query)_page_limit.
func CacheKey(query string, page, limit int) string {
	return strings.ToLower(query) + "_" + strconv.Itoa(page) + "_" + strconv.Itoa(limit)
}
