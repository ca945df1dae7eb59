// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/config"
	"github.com/attendify/presence/internal/geofence"
	"github.com/attendify/presence/internal/health"
	"github.com/attendify/presence/internal/recognition"
	"github.com/attendify/presence/internal/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var campus = geofence.Zone{CenterLat: 40.7128, CenterLng: -74.006, RadiusM: 500}

type fakeCapture struct {
	mu        sync.Mutex
	snap      capture.Snapshot
	activeErr error
	addrErr   error
	actives   []bool
	modes     []capture.SourceMode
	connected []string
}

func (f *fakeCapture) Snapshot() capture.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeCapture) SetActive(active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actives = append(f.actives, active)
	return f.activeErr
}

func (f *fakeCapture) SetSourceMode(mode capture.SourceMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	f.snap.Mode = mode.String()
}

func (f *fakeCapture) ConnectNetworkSource(raw string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addrErr != nil {
		return "", f.addrErr
	}
	addr, err := capture.NormalizeStreamAddress(raw)
	if err != nil {
		return "", err
	}
	f.connected = append(f.connected, addr)
	f.snap.StreamAddress = addr
	return addr, nil
}

type fakeCheckIn struct {
	calls []recognition.CheckInRequest
	resp  recognition.CheckInResponse
	err   error
}

func (f *fakeCheckIn) CheckIn(_ context.Context, req recognition.CheckInRequest) (recognition.CheckInResponse, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

type fakeRefs struct {
	saved []geofence.Zone
}

func (f *fakeRefs) SaveGeofenceReference(lat, lng, radiusM float64) error {
	f.saved = append(f.saved, geofence.Zone{CenterLat: lat, CenterLng: lng, RadiusM: radiusM})
	return nil
}

type fixture struct {
	srv      http.Handler
	capture  *fakeCapture
	monitor  *geofence.Monitor
	location *geofence.PushProvider
	zones    *zones.MemoryStore
	checkIn  *fakeCheckIn
	refs     *fakeRefs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := geofence.NewPushProvider()
	mon := geofence.NewMonitor(provider, campus, geofence.DefaultWatchOptions())
	t.Cleanup(mon.Close)

	f := &fixture{
		capture:  &fakeCapture{snap: capture.Snapshot{State: "idle", Mode: "local", History: []capture.HistoryEntry{}}},
		monitor:  mon,
		location: provider,
		zones:    zones.NewMemoryStore(),
		checkIn:  &fakeCheckIn{resp: recognition.CheckInResponse{OK: true}},
		refs:     &fakeRefs{},
	}
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewPingChecker("zones", f.zones))

	f.srv = New(config.APIConfig{RateLimitRPS: 100, RateLimitBurst: 100}, Deps{
		Capture:    f.capture,
		Geofence:   mon,
		Location:   provider,
		CheckIn:    f.checkIn,
		Zones:      f.zones,
		References: f.refs,
		Health:     hm,
		Now:        func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) },
	}).Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCapture_ActivateAndSnapshot(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/capture/active", `{"active":true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []bool{true}, f.capture.actives)

	rec = f.do(t, http.MethodGet, "/api/v1/capture", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[capture.Snapshot](t, rec)
	assert.Equal(t, "idle", snap.State)
	assert.Equal(t, "local", snap.Mode)
}

func TestCapture_ActivateWithoutConnectIsConflict(t *testing.T) {
	f := newFixture(t)
	f.capture.activeErr = capture.ErrNotConnected

	rec := f.do(t, http.MethodPost, "/api/v1/capture/active", `{"active":true}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "NOT_CONNECTED", body["code"])
	assert.Equal(t, capture.MsgConnectFirst, body["detail"])
	assert.Equal(t, "idle", body["state"])
}

func TestCapture_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing active", "/api/v1/capture/active", `{}`},
		{"unknown field", "/api/v1/capture/active", `{"active":true,"extra":1}`},
		{"empty body", "/api/v1/capture/active", ``},
		{"unknown mode", "/api/v1/capture/mode", `{"mode":"satellite"}`},
		{"blank address", "/api/v1/capture/connect", `{"address":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCapture_ConnectNormalizesAddress(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/capture/connect", `{"address":"192.168.1.50:8080"}`)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode[connectResponse](t, rec)
	assert.Equal(t, "http://192.168.1.50:8080/video", body.StreamAddress)
	assert.Equal(t, []string{"http://192.168.1.50:8080/video"}, f.capture.connected)
}

func TestCapture_ModeSwitch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/capture/mode", `{"mode":"Network"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []capture.SourceMode{capture.SourceNetwork}, f.capture.modes)
	assert.Equal(t, "network", decode[capture.Snapshot](t, rec).Mode)
}

func TestGeofence_LocationFlow(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/geofence/active", `{"active":true}`).Code)

	rec := f.do(t, http.MethodPost, "/api/v1/location", `{"latitude":40.7128,"longitude":-74.006,"accuracy":12}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "inside", body["status"])

	rec = f.do(t, http.MethodPost, "/api/v1/location/error", `{"reason":"1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, geofence.MsgUnavailable, body["error"])
	assert.Equal(t, "permission_denied", body["reason"])
}

func TestGeofence_LocationValidation(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"latitude":91,"longitude":0}`,
		`{"longitude":0}`,
		`{"latitude":0,"longitude":0,"accuracy":-1}`,
	} {
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/location", body).Code, body)
	}
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/location/error", `{"reason":"solar_flare"}`).Code)
}

func TestZones_CRUDAndReference(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/geofence/zones",
		`{"name":"Hall B","centerLat":51.5,"centerLng":-0.12,"radiusM":150,"attributes":{"building":"B"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[zones.Zone](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/v1/geofence/zones/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, "B", created.Attributes["building"])

	list := decode[[]zones.Zone](t, f.do(t, http.MethodGet, "/api/v1/geofence/zones", ""))
	require.Len(t, list, 1)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/geofence/zones/"+created.ID, "").Code)

	rec = f.do(t, http.MethodPut, "/api/v1/geofence/reference", `{"zoneId":"`+created.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, created.Geofence(), f.monitor.Zone())
	assert.Equal(t, []geofence.Zone{created.Geofence()}, f.refs.saved)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/v1/geofence/zones/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/geofence/zones/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/v1/geofence/reference", `{"zoneId":"gone"}`).Code)
}

func TestZones_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/geofence/zones", `{"name":"","centerLat":0,"centerLng":0,"radiusM":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/geofence/reference", `{"centerLat":0,"centerLng":0,"radiusM":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/geofence/reference", `{"centerLat":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, f.refs.saved)
	assert.Equal(t, campus, f.monitor.Zone())
}

func TestCheckIn_Gates(t *testing.T) {
	matched := []capture.HistoryEntry{{Result: recognition.Result{Matched: true}}}
	unmatched := []capture.HistoryEntry{{Result: recognition.Result{Matched: false}}}

	tests := []struct {
		name     string
		locate   string
		state    string
		history  []capture.HistoryEntry
		wantCode string
	}{
		{"no location", "", "streaming", matched, "NO_LOCATION"},
		{"outside", `{"latitude":40.7228,"longitude":-74.006}`, "streaming", matched, "OUTSIDE_ZONE"},
		{"not streaming", `{"latitude":40.7128,"longitude":-74.006}`, "idle", matched, "NOT_STREAMING"},
		{"latest unmatched", `{"latitude":40.7128,"longitude":-74.006}`, "streaming", unmatched, "NOT_RECOGNIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.monitor.SetActive(true)
			if tt.locate != "" {
				require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/v1/location", tt.locate).Code)
			}
			f.capture.snap.State = tt.state
			f.capture.snap.History = tt.history

			rec := f.do(t, http.MethodPost, "/api/v1/checkin", `{"lectureId":"L-101"}`)

			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, tt.wantCode, decode[map[string]any](t, rec)["code"])
			assert.Empty(t, f.checkIn.calls)
		})
	}
}

func TestCheckIn_Submits(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetActive(true)
	require.Equal(t, http.StatusAccepted,
		f.do(t, http.MethodPost, "/api/v1/location", `{"latitude":40.7130,"longitude":-74.0061}`).Code)
	f.capture.snap.State = "streaming"
	f.capture.snap.History = []capture.HistoryEntry{{Result: recognition.Result{Matched: true}}}

	rec := f.do(t, http.MethodPost, "/api/v1/checkin", `{"lectureId":" L-101 "}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[recognition.CheckInResponse](t, rec).OK)
	require.Len(t, f.checkIn.calls, 1)
	assert.Equal(t, "L-101", f.checkIn.calls[0].LectureID)
	assert.InDelta(t, 40.7130, f.checkIn.calls[0].GPS.Lat, 1e-9)
}

func TestCheckIn_UpstreamFailures(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetActive(true)
	f.do(t, http.MethodPost, "/api/v1/location", `{"latitude":40.7128,"longitude":-74.006}`)
	f.capture.snap.State = "streaming"
	f.capture.snap.History = []capture.HistoryEntry{{Result: recognition.Result{Matched: true}}}

	f.checkIn.err = &recognition.ServiceError{Status: 422, Body: "lecture closed"}
	rec := f.do(t, http.MethodPost, "/api/v1/checkin", `{"lectureId":"L-1"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request failed with 422: lecture closed")

	f.checkIn.err = errors.Join(recognition.ErrNetwork, errors.New("dial tcp: refused"))
	rec = f.do(t, http.MethodPost, "/api/v1/checkin", `{"lectureId":"L-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProbesAndMetrics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)

	f.do(t, http.MethodGet, "/api/v1/capture", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "presence_http_request_duration_seconds"))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodDelete, "/api/v1/capture", "").Code)
}
