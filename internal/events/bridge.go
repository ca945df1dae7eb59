// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/geofence"
	"github.com/attendify/presence/internal/recognition"
)

// GeofenceEvent is the payload of TopicGeofenceStatus.
type GeofenceEvent struct {
	Status geofence.Status  `json:"status"`
	Sample *geofence.Sample `json:"sample,omitempty"`
}

// Attach forwards controller and monitor notifications to the hub. The
// returned func detaches every listener.
func Attach(h *Hub, ctrl *capture.Controller, mon *geofence.Monitor) func() {
	var detach []func()
	if ctrl != nil {
		detach = append(detach,
			ctrl.OnStateChange(func(s capture.Snapshot) { h.Publish(TopicCaptureState, s) }),
			ctrl.OnRecognized(func(r recognition.Result) { h.Publish(TopicCaptureRecognized, r) }),
			ctrl.OnFaceDetected(func(ids []recognition.DetectedIdentity) { h.Publish(TopicFacesDetected, ids) }),
		)
	}
	if mon != nil {
		detach = append(detach, mon.OnStatusChange(func(st geofence.Status, s *geofence.Sample) {
			h.Publish(TopicGeofenceStatus, GeofenceEvent{Status: st, Sample: s})
		}))
	}
	return func() {
		for _, fn := range detach {
			fn()
		}
	}
}
