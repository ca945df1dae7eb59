// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/attendify/presence/internal/api/problem"
	xglog "github.com/attendify/presence/internal/log"
)

// Recoverer turns a handler panic into a 500 problem response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)

			pathLabel := r.URL.Path
			if !utf8.ValidString(pathLabel) {
				pathLabel = strings.ToValidUTF8(pathLabel, "")
			}

			logger := xglog.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str(xglog.FieldEvent, "panic.recovered").
				Str("method", r.Method).
				Str(xglog.FieldPath, pathLabel).
				Str("remote_addr", r.RemoteAddr).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			problem.Write(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error",
				"INTERNAL", "An unexpected error occurred. Please try again later.", nil)
		}()

		next.ServeHTTP(w, r)
	})
}
