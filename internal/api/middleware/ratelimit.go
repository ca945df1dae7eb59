// SPDX-License-Identifier: MIT

package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/attendify/presence/internal/api/problem"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	// WindowSize is the time window for rate limiting
	WindowSize time.Duration
	// KeyFunc extracts the rate limit key; defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
	// Whitelist holds IPs or CIDRs that bypass the limiter.
	Whitelist []string
}

// RateLimit creates a sliding window rate limiter using httprate.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	exempt := parseWhitelist(cfg.Whitelist)
	retryAfter := strconv.Itoa(max(1, int(cfg.WindowSize.Seconds())))

	limiter := httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w, r, http.StatusTooManyRequests, "system/rate_limited", "Too Many Requests",
				"RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.", nil)
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		if len(exempt) == 0 {
			return limited
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if whitelisted(exempt, r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// APIRateLimit allows rps requests per second per IP averaged over a minute,
// with burst extra requests on top.
func APIRateLimit(rps, burst int, whitelist []string) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit: rps*60 + max(0, burst),
		WindowSize:   time.Minute,
		Whitelist:    whitelist,
	})
}

func parseWhitelist(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		xglog.L().Warn().Str("entry", e).Msg("ignoring invalid rate limit whitelist entry")
	}
	return out
}

func whitelisted(prefixes []netip.Prefix, remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
