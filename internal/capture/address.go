// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/attendify/presence/internal/core/urlutil"
)

const streamPathSuffix = "/video"

// NormalizeStreamAddress turns operator input ("192.168.1.5:8080") into the
// canonical MJPEG stream URL ("http://192.168.1.5:8080/video").
func NormalizeStreamAddress(raw string) (string, error) {
	withScheme := urlutil.EnsureHTTPScheme(raw)
	if withScheme == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, errEmptyAddress)
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidAddress)
	}

	p := strings.TrimRight(u.Path, "/")
	switch {
	case p == "":
		p = streamPathSuffix
	case strings.HasSuffix(strings.ToLower(p), streamPathSuffix):
	default:
		p += streamPathSuffix
	}
	u.Path = p
	u.RawPath = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
