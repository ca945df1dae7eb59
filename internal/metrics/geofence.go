// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	geofenceStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "presence_geofence_status",
		Help: "Geofence classification (current status=1, others 0)",
	}, []string{"status"})

	geofenceDistance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_geofence_distance_meters",
		Help: "Great-circle distance from the reference center at the last location update",
	})

	// LocationErrorsTotal counts location errors by reason.
	LocationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_location_errors_total",
		Help: "Total number of location errors by reason",
	}, []string{"reason"})
)

var geofenceStatuses = []string{"checking", "inside", "outside", "error"}

// SetGeofenceStatus records the current geofence classification.
func SetGeofenceStatus(status string) {
	for _, s := range geofenceStatuses {
		value := 0.0
		if s == status {
			value = 1.0
		}
		geofenceStatus.WithLabelValues(s).Set(value)
	}
}

// SetGeofenceDistance records the last computed distance in meters.
func SetGeofenceDistance(meters float64) {
	geofenceDistance.Set(meters)
}

// IncLocationError records a location error.
func IncLocationError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	LocationErrorsTotal.WithLabelValues(reason).Inc()
}
