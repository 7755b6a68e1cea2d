package logs

import (
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

// URLSanitizer wraps a zapcore.Core and masks credentials embedded in URLs
// (user:password@host and token-like query parameters) before they are written.
// Catalog, search and proxy endpoints are user-configurable and may carry them.
type URLSanitizer struct {
	zapcore.Core
}

var (
	urlPattern       = regexp.MustCompile(`https?://[^\s"'<>]+`)
	sensitiveParams  = []string{"token", "access_token", "api_key", "apikey", "key", "secret", "password", "sig"}
	maskedCredential = "redacted"
)

// NewURLSanitizer creates a new sanitizing core that wraps core
func NewURLSanitizer(core zapcore.Core) *URLSanitizer {
	return &URLSanitizer{Core: core}
}

// SanitizeURL masks userinfo and sensitive query values in a single URL string.
// Strings that do not parse as URLs are returned unchanged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	changed := false
	if u.User != nil {
		u.User = url.User(maskedCredential)
		changed = true
	}

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isSensitiveParam(key) {
				q.Set(key, maskedCredential)
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	if !changed {
		return raw
	}
	return u.String()
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(key)
	for _, p := range sensitiveParams {
		if key == p {
			return true
		}
	}
	return false
}

func sanitizeString(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPattern.ReplaceAllStringFunc(s, SanitizeURL)
}

// Write sanitizes the entry before writing
func (s *URLSanitizer) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = sanitizeString(entry.Message)
	return s.Core.Write(entry, sanitizeFields(fields))
}

// With creates a sanitizing child core
func (s *URLSanitizer) With(fields []zapcore.Field) zapcore.Core {
	return &URLSanitizer{Core: s.Core.With(sanitizeFields(fields))}
}

// Check delegates to the wrapped core
func (s *URLSanitizer) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(entry.Level) {
		return checked.AddCore(entry, s)
	}
	return checked
}

func sanitizeFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, field := range fields {
		if field.Type == zapcore.StringType {
			field.String = sanitizeString(field.String)
		}
		out[i] = field
	}
	return out
}
