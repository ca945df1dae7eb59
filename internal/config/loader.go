// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every ENV key the last Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath means ENV-only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the backing file path, if any.
func (l *Loader) Path() string { return l.configPath }

// Load parses the file strictly, applies ENV overrides and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, err
	}

	if cfg.Zones.Path != "" {
		if abs, err := filepath.Abs(cfg.Zones.Path); err == nil {
			cfg.Zones.Path = abs
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path onto cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) track(key string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) mergeEnv(cfg *AppConfig) error {
	cfg.API.Listen = ParseString(l.track(EnvListen), cfg.API.Listen)
	cfg.Log.Level = ParseString(l.track(EnvLogLevel), cfg.Log.Level)

	cfg.Recognition.BaseURL = ParseString(l.track(EnvAPIURL), cfg.Recognition.BaseURL)
	cfg.Recognition.Timeout = ParseDuration(l.track(EnvRecognitionTimeout), cfg.Recognition.Timeout)
	if raw, ok := os.LookupEnv(l.track(EnvClassID)); ok && strings.TrimSpace(raw) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvClassID, err)
		}
		cfg.Recognition.ClassID = &v
	}

	cfg.Capture.SampleInterval = ParseDuration(l.track(EnvSampleInterval), cfg.Capture.SampleInterval)
	cfg.Capture.JPEGQuality = ParseInt(l.track(EnvJPEGQuality), cfg.Capture.JPEGQuality)
	cfg.Capture.MaxWidth = ParseInt(l.track(EnvMaxWidth), cfg.Capture.MaxWidth)
	cfg.Capture.Local.FFmpegBin = ParseString(l.track(EnvFFmpegBin), cfg.Capture.Local.FFmpegBin)
	cfg.Capture.Local.Device = ParseString(l.track(EnvCameraDevice), cfg.Capture.Local.Device)

	cfg.Geofence.CenterLat = ParseFloat(l.track(EnvGeofenceLat), cfg.Geofence.CenterLat)
	cfg.Geofence.CenterLng = ParseFloat(l.track(EnvGeofenceLng), cfg.Geofence.CenterLng)
	cfg.Geofence.RadiusM = ParseFloat(l.track(EnvGeofenceRadius), cfg.Geofence.RadiusM)
	cfg.Geofence.EnabledOnStart = ParseBool(l.track(EnvGeofenceOnStart), cfg.Geofence.EnabledOnStart)

	cfg.Zones.Backend = ParseString(l.track(EnvZonesBackend), cfg.Zones.Backend)
	cfg.Zones.Path = ParseString(l.track(EnvZonesPath), cfg.Zones.Path)
	cfg.Zones.RedisAddr = ParseString(l.track(EnvRedisAddr), cfg.Zones.RedisAddr)

	cfg.Telemetry.Enabled = ParseBool(l.track(EnvOTelEnabled), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(l.track(EnvOTelExporter), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(l.track(EnvOTelEndpoint), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(l.track(EnvOTelSampling), cfg.Telemetry.SamplingRate)
	return nil
}
