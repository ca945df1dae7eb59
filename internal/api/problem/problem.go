// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"

	xglog "github.com/attendify/presence/internal/log"
)

const (
	// HeaderRequestID is the canonical header for request correlation.
	HeaderRequestID = "X-Request-ID"

	// JSONKeyRequestID is the problem body field carrying the request ID.
	JSONKeyRequestID = "requestId"

	ContentType = "application/problem+json"
)

// Write writes an RFC 7807 problem details response.
//
//   - problemType: machine identifier, e.g. "capture/not_connected".
//   - title: short human label, e.g. "Conflict".
//   - code: stable upper-case code, e.g. "NOT_CONNECTED".
//   - detail: the operator-facing explanation.
//
// Extras are added at top level; reserved keys are ignored.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	instance := ""
	reqID := ""
	if r != nil {
		instance = r.URL.EscapedPath()
		reqID = xglog.RequestIDFromContext(r.Context())
	} else {
		xglog.L().Error().Str("type", problemType).Int("status", status).Msg("problem.Write called with nil request")
	}
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res[JSONKeyRequestID] = reqID
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance != "" {
		res["instance"] = instance
	}

	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code":
			xglog.L().Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	if reqID != "" {
		w.Header().Set(HeaderRequestID, reqID)
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		xglog.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}
