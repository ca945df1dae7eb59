// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldZoneID        = "zone_id"
	FieldSubjectID     = "subject_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"

	// Capture fields
	FieldSourceMode = "source_mode"
	FieldStreamURL  = "stream_url"
	FieldDevice     = "device"
	FieldResolution = "resolution"
	FieldFrameCount = "frame_count"
	FieldGeneration = "generation"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Recognition fields
	FieldMatched    = "matched"
	FieldScore      = "score"
	FieldDurationMS = "duration_ms"

	// Geofence fields
	FieldGeofenceStatus = "geofence_status"
	FieldDistanceM      = "distance_m"
	FieldAccuracyM      = "accuracy_m"
	FieldReason         = "reason"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
