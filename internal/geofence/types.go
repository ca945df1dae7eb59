// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package geofence classifies location samples against a circular reference zone.
package geofence

import (
	"fmt"
	"time"
)

// Status is the geofence classification.
type Status int

const (
	StatusChecking Status = iota
	StatusInside
	StatusOutside
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusInside:
		return "inside"
	case StatusOutside:
		return "outside"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status name in JSON.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Sample is one position fix.
type Sample struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	ObservedAt time.Time `json:"observedAt"`
}

// Zone is a circular reference area.
type Zone struct {
	CenterLat float64 `json:"centerLat"`
	CenterLng float64 `json:"centerLng"`
	RadiusM   float64 `json:"radiusM"`
}

// Validate checks coordinate ranges and a positive radius.
func (z Zone) Validate() error {
	switch {
	case z.CenterLat < -90 || z.CenterLat > 90:
		return fmt.Errorf("center latitude %v out of range", z.CenterLat)
	case z.CenterLng < -180 || z.CenterLng > 180:
		return fmt.Errorf("center longitude %v out of range", z.CenterLng)
	case z.RadiusM <= 0:
		return fmt.Errorf("radius must be positive, got %v", z.RadiusM)
	}
	return nil
}

// Distance from the zone center to (lat, lng) in meters.
func (z Zone) Distance(lat, lng float64) float64 {
	return Haversine(z.CenterLat, z.CenterLng, lat, lng)
}

// Classify returns Inside when the sample lies within the radius (inclusive).
func (z Zone) Classify(s Sample) (Status, float64) {
	d := z.Distance(s.Latitude, s.Longitude)
	if d <= z.RadiusM {
		return StatusInside, d
	}
	return StatusOutside, d
}

// WatchOptions mirror the platform location watch settings.
type WatchOptions struct {
	HighAccuracy bool          `json:"highAccuracy"`
	Timeout      time.Duration `json:"timeout"`
	MaximumAge   time.Duration `json:"maximumAge"`
}

// DefaultWatchOptions is high accuracy, 10 s timeout, 60 s maximum age.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 60 * time.Second}
}

// Snapshot is the monitor view for display.
type Snapshot struct {
	Active    bool     `json:"active"`
	Status    Status   `json:"status"`
	Sample    *Sample  `json:"sample,omitempty"`
	DistanceM *float64 `json:"distanceM,omitempty"`
	Error     string   `json:"error,omitempty"`
	Reason    Reason   `json:"reason,omitempty"`
	Zone      Zone     `json:"zone"`
}
