// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"runtime"
	"time"
)

const (
	DefaultListen          = ":8088"
	DefaultRecognitionURL  = "http://localhost:5000/api"
	DefaultSampleInterval  = 5 * time.Second
	DefaultJPEGQuality     = 85
	DefaultCenterLat       = 40.7128
	DefaultCenterLng       = -74.006
	DefaultRadiusM         = 500.0
	DefaultWatchTimeout    = 10 * time.Second
	DefaultMaxAge          = 60 * time.Second
	DefaultAcquireTimeout  = 15 * time.Second
	DefaultRecognitionWait = 15 * time.Second
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		API: APIConfig{
			Listen:         DefaultListen,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "presenced",
		},
		Recognition: RecognitionConfig{
			BaseURL: DefaultRecognitionURL,
			Timeout: DefaultRecognitionWait,
		},
		Capture: CaptureConfig{
			SampleInterval: DefaultSampleInterval,
			JPEGQuality:    DefaultJPEGQuality,
			AcquireTimeout: DefaultAcquireTimeout,
			Local:          defaultLocalCapture(),
		},
		Geofence: GeofenceConfig{
			CenterLat:    DefaultCenterLat,
			CenterLng:    DefaultCenterLng,
			RadiusM:      DefaultRadiusM,
			WatchTimeout: DefaultWatchTimeout,
			MaxAge:       DefaultMaxAge,
		},
		Zones: ZonesConfig{
			Backend: BackendMemory,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

func defaultLocalCapture() LocalCaptureConfig {
	lc := LocalCaptureConfig{
		FFmpegBin: "ffmpeg",
		Width:     1280,
		Height:    720,
		Framerate: 15,
		Facing:    "user",
	}
	switch runtime.GOOS {
	case "darwin":
		lc.InputFormat = "avfoundation"
		lc.Device = "0"
	case "windows":
		lc.InputFormat = "dshow"
		lc.Device = "video=Integrated Camera"
	default:
		lc.InputFormat = "v4l2"
		lc.Device = "/dev/video0"
	}
	return lc
}
