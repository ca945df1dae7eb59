// SPDX-License-Identifier: MIT

// Package urlutil holds small URL helpers shared by the capture and API layers.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var httpScheme = regexp.MustCompile(`(?i)^https?://`)

// SanitizeURL removes user info, query and fragment from a URL string for safe logging.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	parsedURL.Fragment = ""
	parsedURL.RawFragment = ""
	return parsedURL.String()
}

// HasHTTPScheme reports whether raw starts with http:// or https:// (any case).
func HasHTTPScheme(raw string) bool {
	return httpScheme.MatchString(raw)
}

// EnsureHTTPScheme trims raw and prefixes "http://" when no http(s) scheme is present.
// Empty input stays empty.
func EnsureHTTPScheme(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if HasHTTPScheme(trimmed) {
		return trimmed
	}
	return "http://" + trimmed
}
