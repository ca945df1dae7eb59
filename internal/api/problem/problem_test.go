// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	xglog "github.com/attendify/presence/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_Body(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/capture/active", nil)
	req = req.WithContext(xglog.ContextWithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	Write(rec, req, http.StatusConflict, "capture/not_connected", "Conflict", "NOT_CONNECTED",
		"Enter the IP Camera URL and press Connect before starting.", map[string]any{
			"state":  "idle",
			"status": 200,
		})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "capture/not_connected", body["type"])
	assert.Equal(t, "NOT_CONNECTED", body["code"])
	assert.Equal(t, float64(http.StatusConflict), body["status"], "reserved extras must not override")
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, "/api/v1/capture/active", body["instance"])
	assert.Equal(t, "req-1", body[JSONKeyRequestID])
}

func TestWrite_FallsBackToResponseHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	rec.Header().Set(HeaderRequestID, "hdr-7")

	Write(rec, req, http.StatusNotFound, "zones/not_found", "Not Found", "NOT_FOUND", "", nil)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hdr-7", body[JSONKeyRequestID])
	assert.NotContains(t, body, "detail")
}
