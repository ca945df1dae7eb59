// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"math"
	"strings"

	"github.com/attendify/presence/internal/validate"
)

// Validate checks cross-field consistency of cfg.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rate_limit_rps", cfg.API.RateLimitRPS)
	v.NonNegative("api.rate_limit_burst", cfg.API.RateLimitBurst)
	v.OneOf("log.level", strings.ToLower(cfg.Log.Level), validate.LogLevels())

	v.URL("recognition.base_url", cfg.Recognition.BaseURL, []string{"http", "https"})
	v.PositiveDuration("recognition.timeout", cfg.Recognition.Timeout)
	if id := cfg.Recognition.ClassID; id != nil && (math.IsNaN(*id) || math.IsInf(*id, 0)) {
		v.AddError("recognition.class_id", "class id must be finite", *id)
	}

	v.PositiveDuration("capture.sample_interval", cfg.Capture.SampleInterval)
	v.PositiveDuration("capture.acquire_timeout", cfg.Capture.AcquireTimeout)
	v.Range("capture.jpeg_quality", cfg.Capture.JPEGQuality, 1, 100)
	v.NonNegative("capture.max_width", cfg.Capture.MaxWidth)
	v.NotEmpty("capture.local.ffmpeg_bin", cfg.Capture.Local.FFmpegBin)
	v.Positive("capture.local.width", cfg.Capture.Local.Width)
	v.Positive("capture.local.height", cfg.Capture.Local.Height)
	v.Positive("capture.local.framerate", cfg.Capture.Local.Framerate)
	v.OneOf("capture.local.facing", cfg.Capture.Local.Facing, []string{"user", "environment"})

	v.Latitude("geofence.center_lat", cfg.Geofence.CenterLat)
	v.Longitude("geofence.center_lng", cfg.Geofence.CenterLng)
	v.FloatRange("geofence.radius_m", cfg.Geofence.RadiusM, 1, 1_000_000)
	v.PositiveDuration("geofence.watch_timeout", cfg.Geofence.WatchTimeout)
	v.PositiveDuration("geofence.max_age", cfg.Geofence.MaxAge)

	v.OneOf("zones.backend", cfg.Zones.Backend, []string{BackendMemory, BackendSQLite, BackendRedis, BackendBadger})
	switch cfg.Zones.Backend {
	case BackendSQLite, BackendBadger:
		v.NotEmpty("zones.path", cfg.Zones.Path)
	case BackendRedis:
		v.NotEmpty("zones.redis_addr", cfg.Zones.RedisAddr)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
