// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/attendify/presence/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys. ENV overrides the file.
const (
	EnvConfigPath         = "PRESENCE_CONFIG"
	EnvListen             = "PRESENCE_LISTEN"
	EnvLogLevel           = "PRESENCE_LOG_LEVEL"
	EnvAPIURL             = "PRESENCE_API_URL"
	EnvRecognitionTimeout = "PRESENCE_RECOGNITION_TIMEOUT"
	EnvClassID            = "PRESENCE_CLASS_ID"
	EnvSampleInterval     = "PRESENCE_SAMPLE_INTERVAL"
	EnvJPEGQuality        = "PRESENCE_JPEG_QUALITY"
	EnvMaxWidth           = "PRESENCE_MAX_WIDTH"
	EnvFFmpegBin          = "PRESENCE_FFMPEG_BIN"
	EnvCameraDevice       = "PRESENCE_CAMERA_DEVICE"
	EnvGeofenceLat        = "PRESENCE_GEOFENCE_LAT"
	EnvGeofenceLng        = "PRESENCE_GEOFENCE_LNG"
	EnvGeofenceRadius     = "PRESENCE_GEOFENCE_RADIUS_M"
	EnvGeofenceOnStart    = "PRESENCE_GEOFENCE_ENABLED"
	EnvZonesBackend       = "PRESENCE_ZONES_BACKEND"
	EnvZonesPath          = "PRESENCE_ZONES_PATH"
	EnvRedisAddr          = "PRESENCE_REDIS_ADDR"
	EnvOTelEnabled        = "PRESENCE_OTEL_ENABLED"
	EnvOTelExporter       = "PRESENCE_OTEL_EXPORTER"
	EnvOTelEndpoint       = "PRESENCE_OTEL_ENDPOINT"
	EnvOTelSampling       = "PRESENCE_OTEL_SAMPLING_RATE"
)

// parseEnv is the shared lookup/log/fallback path of the Parse* helpers.
func parseEnv[T any](key string, def T, parse func(string) (T, error), field func(*zerolog.Event, string, T) *zerolog.Event) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok {
		field(logger.Debug().Str("key", key).Str("source", "default"), "default", def).Msg("using default value")
		return def
	}
	if v == "" {
		field(logger.Debug().Str("key", key).Str("source", "default"), "default", def).
			Msg("using default value (environment variable is empty)")
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		field(logger.Warn().Str("key", key).Str("value", v).Err(err), "default", def).
			Msg("invalid value in environment variable, using default")
		return def
	}
	if isSensitive(key) {
		logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
		return parsed
	}
	field(logger.Debug().Str("key", key).Str("source", "environment"), "value", parsed).Msg("using environment variable")
	return parsed
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password") || strings.Contains(k, "secret")
}

// ParseString reads a string from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue,
		func(s string) (string, error) { return s, nil },
		func(e *zerolog.Event, k string, v string) *zerolog.Event { return e.Str(k, v) })
}

// ParseInt reads an integer from the environment; parse errors fall back to defaultValue.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi,
		func(e *zerolog.Event, k string, v int) *zerolog.Event { return e.Int(k, v) })
}

// ParseFloat reads a float64 from the environment.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue,
		func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		func(e *zerolog.Event, k string, v float64) *zerolog.Event { return e.Float64(k, v) })
}

// ParseDuration reads a Go duration ("5s") from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration,
		func(e *zerolog.Event, k string, v time.Duration) *zerolog.Event { return e.Dur(k, v) })
}

// ParseBool accepts true/false, 1/0 and yes/no (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, parseBoolWord,
		func(e *zerolog.Event, k string, v bool) *zerolog.Event { return e.Bool(k, v) })
}

func parseBoolWord(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}
