// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presenced.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v-test"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5*time.Second, cfg.Capture.SampleInterval)
	assert.Equal(t, 85, cfg.Capture.JPEGQuality)
	assert.Equal(t, 500.0, cfg.Geofence.RadiusM)
	assert.Equal(t, 10*time.Second, cfg.Geofence.WatchTimeout)
	assert.Equal(t, 60*time.Second, cfg.Geofence.MaxAge)
	assert.Equal(t, "http://localhost:5000/api", cfg.Recognition.BaseURL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  listen: "127.0.0.1:9000"
recognition:
  base_url: "http://10.0.0.2:5000/api"
  class_id: 7
capture:
  sample_interval: 3s
  local:
    devices:
      environment: /dev/video2
geofence:
  center_lat: 51.5
  center_lng: -0.12
  radius_m: 250
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Equal(t, 3*time.Second, cfg.Capture.SampleInterval)
	require.NotNil(t, cfg.Recognition.ClassID)
	assert.Equal(t, 7.0, *cfg.Recognition.ClassID)
	assert.Equal(t, "/dev/video2", cfg.Capture.Local.Devices["environment"])
	assert.Equal(t, 250.0, cfg.Geofence.RadiusM)
	// untouched keys keep defaults
	assert.Equal(t, 85, cfg.Capture.JPEGQuality)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api:\n  listen: \":9000\"\ncapture:\n  sample_interval: 3s\n")
	t.Setenv(EnvListen, ":9100")
	t.Setenv(EnvSampleInterval, "2s")
	t.Setenv(EnvAPIURL, "https://attendance.example.edu/api")
	t.Setenv(EnvClassID, "12")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.API.Listen)
	assert.Equal(t, 2*time.Second, cfg.Capture.SampleInterval)
	assert.Equal(t, "https://attendance.example.edu/api", cfg.Recognition.BaseURL)
	require.NotNil(t, cfg.Recognition.ClassID)
	assert.Equal(t, 12.0, *cfg.Recognition.ClassID)
	assert.Contains(t, l.ConsumedEnvKeys, EnvListen)
}

func TestLoad_InvalidClassIDEnv(t *testing.T) {
	t.Setenv(EnvClassID, "abc")
	_, err := NewLoader("", "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvClassID)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "capture:\n  sample_interval: 5s\n  framez: 3\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoad_MultipleDocumentsRejected(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n---\nlog:\n  level: debug\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presenced.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.API.Listen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*AppConfig) {}},
		{name: "zero interval", mutate: func(c *AppConfig) { c.Capture.SampleInterval = 0 }, wantErr: "capture.sample_interval"},
		{name: "quality out of range", mutate: func(c *AppConfig) { c.Capture.JPEGQuality = 0 }, wantErr: "capture.jpeg_quality"},
		{name: "bad latitude", mutate: func(c *AppConfig) { c.Geofence.CenterLat = 95 }, wantErr: "geofence.center_lat"},
		{name: "sqlite needs path", mutate: func(c *AppConfig) { c.Zones.Backend = BackendSQLite }, wantErr: "zones.path"},
		{name: "redis needs addr", mutate: func(c *AppConfig) { c.Zones.Backend = BackendRedis }, wantErr: "zones.redis_addr"},
		{name: "unknown backend", mutate: func(c *AppConfig) { c.Zones.Backend = "etcd" }, wantErr: "zones.backend"},
		{name: "bad facing", mutate: func(c *AppConfig) { c.Capture.Local.Facing = "left" }, wantErr: "capture.local.facing"},
		{name: "bad base url", mutate: func(c *AppConfig) { c.Recognition.BaseURL = "localhost:5000" }, wantErr: "recognition.base_url"},
		{
			name: "telemetry exporter checked only when enabled",
			mutate: func(c *AppConfig) {
				c.Telemetry.Enabled = true
				c.Telemetry.Exporter = "zipkin"
			},
			wantErr: "telemetry.exporter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	class := 3.0
	cfg := Defaults()
	cfg.Recognition.ClassID = &class
	cfg.API.AllowedOrigins = []string{"http://a"}
	cfg.Capture.Local.Devices = map[string]string{"user": "/dev/video0"}

	cp := cfg.Clone()
	*cp.Recognition.ClassID = 9
	cp.API.AllowedOrigins[0] = "http://b"
	cp.Capture.Local.Devices["user"] = "/dev/video9"

	assert.Equal(t, 3.0, *cfg.Recognition.ClassID)
	assert.Equal(t, "http://a", cfg.API.AllowedOrigins[0])
	assert.Equal(t, "/dev/video0", cfg.Capture.Local.Devices["user"])
}
