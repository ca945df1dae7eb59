// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads presenced configuration.
package config

import "time"

// AppConfig is the effective daemon configuration after defaults, file and ENV are merged.
type AppConfig struct {
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Capture     CaptureConfig     `yaml:"capture"`
	Geofence    GeofenceConfig    `yaml:"geofence"`
	Zones       ZonesConfig       `yaml:"zones"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Version is stamped from the binary, never read from file.
	Version string `yaml:"-"`
}

type APIConfig struct {
	Listen         string   `yaml:"listen"`
	RateLimitRPS   int      `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// RecognitionConfig points at the attendance service.
type RecognitionConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// ClassID is attached to submissions when set.
	ClassID *float64 `yaml:"class_id,omitempty"`
}

type CaptureConfig struct {
	SampleInterval time.Duration      `yaml:"sample_interval"`
	JPEGQuality    int                `yaml:"jpeg_quality"`
	MaxWidth       int                `yaml:"max_width"`
	AcquireTimeout time.Duration      `yaml:"acquire_timeout"`
	Local          LocalCaptureConfig `yaml:"local"`
}

// LocalCaptureConfig drives the ffmpeg device reader.
type LocalCaptureConfig struct {
	FFmpegBin   string `yaml:"ffmpeg_bin"`
	InputFormat string `yaml:"input_format"`
	Device      string `yaml:"device"`
	// Devices maps a facing hint ("user", "environment") to a device path.
	Devices   map[string]string `yaml:"devices"`
	Width     int               `yaml:"width"`
	Height    int               `yaml:"height"`
	Framerate int               `yaml:"framerate"`
	Facing    string            `yaml:"facing"`
}

// GeofenceConfig is the reference zone and watch options.
type GeofenceConfig struct {
	CenterLat      float64       `yaml:"center_lat"`
	CenterLng      float64       `yaml:"center_lng"`
	RadiusM        float64       `yaml:"radius_m"`
	WatchTimeout   time.Duration `yaml:"watch_timeout"`
	MaxAge         time.Duration `yaml:"max_age"`
	EnabledOnStart bool          `yaml:"enabled_on_start"`
}

type ZonesConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Zone backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Clone returns a deep copy so holders can hand out values safely.
func (c AppConfig) Clone() AppConfig {
	out := c
	if c.API.AllowedOrigins != nil {
		out.API.AllowedOrigins = append([]string(nil), c.API.AllowedOrigins...)
	}
	if c.Recognition.ClassID != nil {
		v := *c.Recognition.ClassID
		out.Recognition.ClassID = &v
	}
	if c.Capture.Local.Devices != nil {
		out.Capture.Local.Devices = make(map[string]string, len(c.Capture.Local.Devices))
		for k, v := range c.Capture.Local.Devices {
			out.Capture.Local.Devices[k] = v
		}
	}
	return out
}
