// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package zones persists the registry of named geofence zones.
package zones

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/attendify/presence/internal/geofence"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("zones: zone not found")
	ErrInvalid  = errors.New("zones: invalid zone")
)

// Zone is a registered geofence area. Attributes carry the client payload
// fields the registry does not interpret.
type Zone struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CenterLat  float64        `json:"centerLat"`
	CenterLng  float64        `json:"centerLng"`
	RadiusM    float64        `json:"radiusM"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Geofence returns the classification zone.
func (z Zone) Geofence() geofence.Zone {
	return geofence.Zone{CenterLat: z.CenterLat, CenterLng: z.CenterLng, RadiusM: z.RadiusM}
}

// Validate checks the identity and the geometry.
func (z Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := z.Geofence().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// New builds a zone with a generated ID.
func New(name string, center geofence.Zone, attrs map[string]any, now time.Time) (Zone, error) {
	z := Zone{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		CenterLat:  center.CenterLat,
		CenterLng:  center.CenterLng,
		RadiusM:    center.RadiusM,
		Attributes: attrs,
		CreatedAt:  now.UTC().Truncate(time.Millisecond),
	}
	if err := z.Validate(); err != nil {
		return Zone{}, err
	}
	return z, nil
}

// Store is a zone registry backend.
type Store interface {
	List(ctx context.Context) ([]Zone, error)
	Get(ctx context.Context, id string) (Zone, error)
	Put(ctx context.Context, z Zone) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// sortZones orders by creation time, then ID.
func sortZones(zs []Zone) {
	sort.Slice(zs, func(i, j int) bool {
		if !zs[i].CreatedAt.Equal(zs[j].CreatedAt) {
			return zs[i].CreatedAt.Before(zs[j].CreatedAt)
		}
		return zs[i].ID < zs[j].ID
	})
}
