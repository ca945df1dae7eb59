// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test", Version: "v0"})
	t.Cleanup(func() { Configure(Config{}) })
	return &buf
}

func TestWithComponentAnnotatesEntries(t *testing.T) {
	buf := captureOutput(t)

	l := WithComponent("capture")
	l.Info().Str(FieldEvent, "capture.started").Msg("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "capture", entry[FieldComponent])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "v0", entry["version"])
	assert.Equal(t, "capture.started", entry[FieldEvent])
}

func TestMiddlewareLogsRequest(t *testing.T) {
	buf := captureOutput(t)

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/capture", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-9"))
	h.ServeHTTP(rec, req)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "request.handled", entry[FieldEvent])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, float64(len("short and stout")), entry["bytes"])
	assert.Equal(t, "req-9", entry[FieldRequestID])
	assert.Equal(t, "warn", entry["level"])
}
