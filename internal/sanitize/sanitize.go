// Package sanitize strips unsafe markup from free-text input before it
// is persisted or logged. All functions are pure and never fail.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	iframeBlockRe = regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)
	jsURIRe       = regexp.MustCompile(`(?i)javascript:`)
	eventAttrRe   = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	angleRe       = regexp.MustCompile(`[<>]`)
)

// Input removes <script> and <iframe> blocks including their content,
// neutralizes javascript: URIs and inline on*= event handlers, strips
// any remaining angle brackets, and trims surrounding whitespace.
// Empty input returns the empty string.
func Input(s string) string {
	if s == "" {
		return ""
	}

	s = scriptBlockRe.ReplaceAllString(s, "")
	s = iframeBlockRe.ReplaceAllString(s, "")
	s = jsURIRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	s = angleRe.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

// URL keeps only http(s) URLs; anything else collapses to the empty string.
func URL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}

	return trimmed
}

// Email normalizes an email address to lowercase with whitespace trimmed.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Value sanitizes string values and passes everything else through
// unchanged. Used for audit old/new values and metadata entries whose
// types are not known statically.
func Value(v any) any {
	if s, ok := v.(string); ok {
		return Input(s)
	}
	return v
}

// Map returns a copy of m with every string-typed value sanitized.
// A nil map yields an empty, non-nil map.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Value(v)
	}
	return out
}
