// SPDX-License-Identifier: MIT

// Package daemon wires presenced together and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/attendify/presence/internal/api"
	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/capture/device"
	"github.com/attendify/presence/internal/capture/network"
	"github.com/attendify/presence/internal/config"
	"github.com/attendify/presence/internal/events"
	"github.com/attendify/presence/internal/geofence"
	"github.com/attendify/presence/internal/health"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/recognition"
	"github.com/attendify/presence/internal/telemetry"
	"github.com/attendify/presence/internal/zones"
	"github.com/rs/zerolog"
)

// streamStallTimeout ends a session whose source stops delivering frames.
const streamStallTimeout = 10 * time.Second

// Options tune Bootstrap. The opener and dispatcher overrides exist for tests.
type Options struct {
	ConfigPath string
	Version    string

	Devices    capture.DeviceOpener
	Streams    capture.StreamOpener
	Dispatcher capture.Dispatcher
}

// Runtime is the fully wired daemon.
type Runtime struct {
	Holder     *config.ConfigHolder
	Controller *capture.Controller
	Monitor    *geofence.Monitor
	Location   *geofence.PushProvider
	Hub        *events.Hub
	Zones      zones.Store
	Health     *health.Manager
	Manager    Manager

	logger zerolog.Logger
}

// Bootstrap loads configuration and builds every component. Nothing runs
// until App.Run starts the manager.
func Bootstrap(ctx context.Context, opts Options) (_ *Runtime, err error) {
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: opts.Version,
	})
	logger := xglog.Derive(func(c *zerolog.Context) {
		*c = c.Str(xglog.FieldComponent, "daemon").Str("config_path", loader.Path())
	})

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	// Undo partial construction on failure.
	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	tp, terr := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: opts.Version,
		Environment:    "production",
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if terr != nil {
		logger.Warn().Err(terr).Msg("telemetry initialization failed, continuing without tracing")
		tp, _ = telemetry.NewProvider(ctx, telemetry.Config{})
	} else if cfg.Telemetry.Enabled {
		logger.Info().
			Str("endpoint", cfg.Telemetry.Endpoint).
			Float64("sampling_rate", cfg.Telemetry.SamplingRate).
			Msg("telemetry initialized")
	}
	closers = append(closers, func() { _ = tp.Shutdown(context.Background()) })

	store, err := zones.Open(ctx, cfg.Zones)
	if err != nil {
		return nil, fmt.Errorf("open zone store: %w", err)
	}
	closers = append(closers, func() { _ = store.Close() })

	rt := &Runtime{
		Holder: config.NewConfigHolder(cfg, loader),
		Zones:  store,
		logger: logger,
	}

	if opts.Dispatcher == nil {
		opts.Dispatcher = recognition.NewClient(cfg.Recognition.BaseURL, cfg.Recognition.Timeout)
	}
	if opts.Devices == nil {
		lc := cfg.Capture.Local
		opts.Devices = device.NewOpener(device.Config{
			Bin:          lc.FFmpegBin,
			InputFormat:  lc.InputFormat,
			Device:       lc.Device,
			Devices:      lc.Devices,
			Framerate:    lc.Framerate,
			StallTimeout: streamStallTimeout,
		})
	}
	if opts.Streams == nil {
		opts.Streams = network.NewOpener(cfg.Capture.AcquireTimeout, streamStallTimeout)
	}

	rt.Controller = capture.NewController(capture.Options{
		Devices:        opts.Devices,
		Streams:        opts.Streams,
		Dispatcher:     opts.Dispatcher,
		SampleInterval: cfg.Capture.SampleInterval,
		JPEGQuality:    cfg.Capture.JPEGQuality,
		MaxWidth:       cfg.Capture.MaxWidth,
		AcquireTimeout: cfg.Capture.AcquireTimeout,
		ClassID:        cfg.Recognition.ClassID,
		Device: capture.DeviceRequest{
			Width:  cfg.Capture.Local.Width,
			Height: cfg.Capture.Local.Height,
			Facing: cfg.Capture.Local.Facing,
		},
	})
	closers = append(closers, func() { _ = rt.Controller.Close() })

	rt.Location = geofence.NewPushProvider()
	rt.Monitor = geofence.NewMonitor(rt.Location, referenceZone(cfg.Geofence), geofence.WatchOptions{
		HighAccuracy: true,
		Timeout:      cfg.Geofence.WatchTimeout,
		MaximumAge:   cfg.Geofence.MaxAge,
	})
	closers = append(closers, rt.Monitor.Close)

	rt.Hub = events.NewHub()
	detach := events.Attach(rt.Hub, rt.Controller, rt.Monitor)
	closers = append(closers, rt.Hub.Close, detach)

	rt.Health = health.NewManager(opts.Version)
	rt.Health.RegisterChecker(health.NewPingChecker("zones", store))
	rt.Health.RegisterChecker(health.NewCaptureChecker(rt.Controller))
	rt.Health.RegisterChecker(health.NewGeofenceChecker(rt.Monitor))
	if opts.ConfigPath != "" {
		rt.Health.RegisterChecker(health.NewFileChecker("config", opts.ConfigPath))
	}

	deps := api.Deps{
		Capture:  rt.Controller,
		Geofence: rt.Monitor,
		Location: rt.Location,
		CheckIn:  recognition.NewClient(cfg.Recognition.BaseURL, cfg.Recognition.Timeout),
		Zones:    store,
		Events:   events.NewWSHandler(rt.Hub, cfg.API.AllowedOrigins),
		Health:   rt.Health,
	}
	if opts.ConfigPath != "" {
		deps.References = config.NewManager(opts.ConfigPath)
	}
	srv := api.New(cfg.API, deps)

	rt.Manager, err = NewManager(DefaultServerConfig(cfg.API.Listen), Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		return nil, err
	}

	// LIFO: the capture session stops first, telemetry flushes last.
	rt.Manager.RegisterShutdownHook("telemetry", tp.Shutdown)
	rt.Manager.RegisterShutdownHook("zones", func(context.Context) error { return store.Close() })
	rt.Manager.RegisterShutdownHook("events", func(context.Context) error {
		detach()
		rt.Hub.Close()
		return nil
	})
	rt.Manager.RegisterShutdownHook("geofence", func(context.Context) error {
		rt.Monitor.Close()
		return nil
	})
	rt.Manager.RegisterShutdownHook("capture", func(context.Context) error { return rt.Controller.Close() })

	if cfg.Geofence.EnabledOnStart {
		rt.Monitor.SetActive(true)
	}

	logger.Info().
		Str("listen", cfg.API.Listen).
		Str(xglog.FieldBaseURL, cfg.Recognition.BaseURL).
		Str("zones_backend", cfg.Zones.Backend).
		Msg("presenced wired")
	return rt, nil
}

// Apply pushes a reloaded configuration into the running components.
// The sample interval and class ID take effect for the next session.
func (rt *Runtime) Apply(cfg config.AppConfig) {
	xglog.Configure(xglog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: cfg.Version})

	rt.Controller.SetSampleInterval(cfg.Capture.SampleInterval)
	rt.Controller.SetClassID(cfg.Recognition.ClassID)

	if err := rt.Monitor.SetReference(referenceZone(cfg.Geofence)); err != nil {
		rt.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.apply_failed").
			Msg("reloaded geofence reference rejected")
		return
	}
	rt.logger.Info().Str(xglog.FieldEvent, "config.applied").Msg("reloaded configuration applied")
}

func referenceZone(g config.GeofenceConfig) geofence.Zone {
	return geofence.Zone{CenterLat: g.CenterLat, CenterLng: g.CenterLng, RadiusM: g.RadiusM}
}
