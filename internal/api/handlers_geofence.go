// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/attendify/presence/internal/api/middleware"
	"github.com/attendify/presence/internal/api/problem"
	"github.com/attendify/presence/internal/geofence"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/zones"
	"github.com/go-chi/chi/v5"
)

// referenceRequest selects a registered zone or gives explicit geometry.
type referenceRequest struct {
	ZoneID    string   `json:"zoneId,omitempty"`
	CenterLat *float64 `json:"centerLat,omitempty"`
	CenterLng *float64 `json:"centerLng,omitempty"`
	RadiusM   *float64 `json:"radiusM,omitempty"`
}

type locationRequest struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Accuracy   float64    `json:"accuracy"`
	ObservedAt *time.Time `json:"observedAt,omitempty"`
}

type locationErrorRequest struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

type createZoneRequest struct {
	Name       string         `json:"name"`
	CenterLat  float64        `json:"centerLat"`
	CenterLng  float64        `json:"centerLng"`
	RadiusM    float64        `json:"radiusM"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (s *Server) handleGetGeofence(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Geofence.Snapshot())
}

func (s *Server) handleSetGeofenceActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "geofence", err)
		return
	}
	if req.Active == nil {
		writeBadRequest(w, r, "geofence", errors.New("active is required"))
		return
	}
	s.deps.Geofence.SetActive(*req.Active)
	writeJSON(w, http.StatusOK, s.deps.Geofence.Snapshot())
}

func (s *Server) handleSetReference(w http.ResponseWriter, r *http.Request) {
	var req referenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "geofence", err)
		return
	}

	var zone geofence.Zone
	switch {
	case req.ZoneID != "":
		z, err := s.deps.Zones.Get(r.Context(), req.ZoneID)
		if errors.Is(err, zones.ErrNotFound) {
			writeNotFound(w, r, "zones", fmt.Sprintf("zone %q does not exist", req.ZoneID))
			return
		}
		if err != nil {
			s.zoneStoreFailed(w, r, err)
			return
		}
		zone = z.Geofence()
	case req.CenterLat != nil && req.CenterLng != nil && req.RadiusM != nil:
		zone = geofence.Zone{CenterLat: *req.CenterLat, CenterLng: *req.CenterLng, RadiusM: *req.RadiusM}
	default:
		writeBadRequest(w, r, "geofence", errors.New("either zoneId or centerLat, centerLng and radiusM are required"))
		return
	}

	if err := s.deps.Geofence.SetReference(zone); err != nil {
		writeBadRequest(w, r, "geofence", err)
		return
	}

	logger := xglog.WithContext(r.Context(), s.logger)
	if s.deps.References != nil {
		if err := s.deps.References.SaveGeofenceReference(zone.CenterLat, zone.CenterLng, zone.RadiusM); err != nil {
			// The running monitor already uses the new zone; only persistence failed.
			logger.Warn().Err(err).Str(xglog.FieldEvent, "geofence.reference_persist_failed").
				Msg("reference zone applied but not saved")
		}
	}
	writeJSON(w, http.StatusOK, s.deps.Geofence.Snapshot())
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "location", err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeBadRequest(w, r, "location", errors.New("latitude and longitude are required"))
		return
	}
	lat, lng := *req.Latitude, *req.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		writeBadRequest(w, r, "location", fmt.Errorf("coordinates (%v, %v) out of range", lat, lng))
		return
	}
	if req.Accuracy < 0 {
		writeBadRequest(w, r, "location", errors.New("accuracy must not be negative"))
		return
	}

	sample := geofence.Sample{Latitude: lat, Longitude: lng, Accuracy: req.Accuracy}
	if req.ObservedAt != nil {
		sample.ObservedAt = *req.ObservedAt
	}
	s.deps.Location.Push(sample)

	snap := s.deps.Geofence.Snapshot()
	if snap.DistanceM != nil {
		middleware.AddGeofenceAttributes(r, snap.Status.String(), *snap.DistanceM)
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleLocationError(w http.ResponseWriter, r *http.Request) {
	var req locationErrorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "location", err)
		return
	}
	reason, err := geofence.ParseReason(strings.TrimSpace(req.Reason))
	if err != nil {
		writeBadRequest(w, r, "location", err)
		return
	}
	s.deps.Location.Fail(&geofence.LocationError{Reason: reason, Detail: req.Message})
	writeJSON(w, http.StatusAccepted, s.deps.Geofence.Snapshot())
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Zones.List(r.Context())
	if err != nil {
		s.zoneStoreFailed(w, r, err)
		return
	}
	if list == nil {
		list = []zones.Zone{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var req createZoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "zones", err)
		return
	}
	z, err := zones.New(req.Name, geofence.Zone{
		CenterLat: req.CenterLat,
		CenterLng: req.CenterLng,
		RadiusM:   req.RadiusM,
	}, req.Attributes, s.deps.Now())
	if err != nil {
		writeBadRequest(w, r, "zones", err)
		return
	}
	if err := s.deps.Zones.Put(r.Context(), z); err != nil {
		s.zoneStoreFailed(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/geofence/zones/"+z.ID)
	writeJSON(w, http.StatusCreated, z)
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	z, err := s.deps.Zones.Get(r.Context(), id)
	if errors.Is(err, zones.ErrNotFound) {
		writeNotFound(w, r, "zones", fmt.Sprintf("zone %q does not exist", id))
		return
	}
	if err != nil {
		s.zoneStoreFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.Zones.Delete(r.Context(), id)
	if errors.Is(err, zones.ErrNotFound) {
		writeNotFound(w, r, "zones", fmt.Sprintf("zone %q does not exist", id))
		return
	}
	if err != nil {
		s.zoneStoreFailed(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) zoneStoreFailed(w http.ResponseWriter, r *http.Request, err error) {
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Error().Err(err).
		Str(xglog.FieldEvent, "zones.store_failed").
		Msg("zone store operation failed")
	problem.Write(w, r, http.StatusServiceUnavailable, "zones/store_unavailable", "Service Unavailable",
		"STORE_UNAVAILABLE", "The zone registry is unavailable.", nil)
}
