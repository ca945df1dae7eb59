// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the capture session, geofence monitor and zone registry over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/attendify/presence/internal/api/middleware"
	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/config"
	"github.com/attendify/presence/internal/geofence"
	"github.com/attendify/presence/internal/health"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/recognition"
	"github.com/attendify/presence/internal/zones"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// CaptureService is the capture session surface the API drives.
type CaptureService interface {
	Snapshot() capture.Snapshot
	SetActive(active bool) error
	SetSourceMode(mode capture.SourceMode)
	ConnectNetworkSource(raw string) (string, error)
}

// GeofenceService is the geofence monitor surface the API drives.
type GeofenceService interface {
	Snapshot() geofence.Snapshot
	SetActive(active bool)
	SetReference(z geofence.Zone) error
}

// LocationFeed accepts position fixes and failures from the client device.
type LocationFeed interface {
	Push(s geofence.Sample)
	Fail(err error)
}

// CheckInService submits a lecture check-in to the attendance service.
type CheckInService interface {
	CheckIn(ctx context.Context, req recognition.CheckInRequest) (recognition.CheckInResponse, error)
}

// ReferenceStore persists the selected reference zone.
type ReferenceStore interface {
	SaveGeofenceReference(lat, lng, radiusM float64) error
}

// Deps are the collaborators behind the routes. Events, Health, References
// and Metrics are optional.
type Deps struct {
	Capture    CaptureService
	Geofence   GeofenceService
	Location   LocationFeed
	CheckIn    CheckInService
	Zones      zones.Store
	References ReferenceStore
	Events     http.Handler
	Health     *health.Manager
	Metrics    http.Handler

	Now func() time.Time
}

// Server builds the HTTP handler. It owns no listener; the daemon serves it.
type Server struct {
	deps   Deps
	stack  middleware.StackConfig
	logger zerolog.Logger
}

// New creates a server from the API config section.
func New(cfg config.APIConfig, deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{
		deps: deps,
		stack: middleware.StackConfig{
			EnableCORS:            true,
			AllowedOrigins:        cfg.AllowedOrigins,
			EnableSecurityHeaders: true,
			EnableMetrics:         true,
			TracingService:        "presenced-api",
			EnableLogging:         true,
			RateLimitRPS:          cfg.RateLimitRPS,
			RateLimitBurst:        cfg.RateLimitBurst,
		},
		logger: xglog.WithComponent("api"),
	}
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Probes and scrapes bypass the rate limiter and access log.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recoverer)
		if s.deps.Health != nil {
			r.Get("/healthz", s.deps.Health.ServeHealth)
			r.Get("/readyz", s.deps.Health.ServeReady)
		}
		r.Handle("/metrics", s.deps.Metrics)
	})

	r.Group(func(r chi.Router) {
		middleware.ApplyStack(r, s.stack)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/capture", s.handleGetCapture)
			r.Post("/capture/active", s.handleSetCaptureActive)
			r.Post("/capture/mode", s.handleSetCaptureMode)
			r.Post("/capture/connect", s.handleConnect)

			r.Get("/geofence", s.handleGetGeofence)
			r.Post("/geofence/active", s.handleSetGeofenceActive)
			r.Put("/geofence/reference", s.handleSetReference)
			r.Get("/geofence/zones", s.handleListZones)
			r.Post("/geofence/zones", s.handleCreateZone)
			r.Get("/geofence/zones/{id}", s.handleGetZone)
			r.Delete("/geofence/zones/{id}", s.handleDeleteZone)

			r.Post("/location", s.handleLocation)
			r.Post("/location/error", s.handleLocationError)

			r.Post("/checkin", s.handleCheckIn)

			if s.deps.Events != nil {
				r.Get("/events", s.deps.Events.ServeHTTP)
			}
		})
	})

	return r
}
