// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	CaptureModeKey       = "capture.mode"
	CaptureGenerationKey = "capture.generation"
	CaptureFrameCountKey = "capture.frame_count"
	CaptureStreamURLKey  = "capture.stream_url"

	RecognitionSourceKey  = "recognition.source"
	RecognitionMatchedKey = "recognition.matched"
	RecognitionScoreKey   = "recognition.score"
	RecognitionClassKey   = "recognition.class_id"

	GeofenceStatusKey   = "geofence.status"
	GeofenceDistanceKey = "geofence.distance_m"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// CaptureAttributes describes a capture session. Empty streamURL is omitted.
func CaptureAttributes(mode string, generation uint64, streamURL string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(CaptureModeKey, mode),
		attribute.Int64(CaptureGenerationKey, int64(generation)),
	}
	if streamURL != "" {
		attrs = append(attrs, attribute.String(CaptureStreamURLKey, streamURL))
	}
	return attrs
}

// SubmissionAttributes describes one frame submission.
func SubmissionAttributes(source string, frameCount int64, classID *float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RecognitionSourceKey, source),
		attribute.Int64(CaptureFrameCountKey, frameCount),
	}
	if classID != nil {
		attrs = append(attrs, attribute.Float64(RecognitionClassKey, *classID))
	}
	return attrs
}

// RecognitionAttributes describes a recognition outcome.
func RecognitionAttributes(matched bool, score float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(RecognitionMatchedKey, matched),
		attribute.Float64(RecognitionScoreKey, score),
	}
}

// GeofenceAttributes describes a geofence evaluation.
func GeofenceAttributes(status string, distanceM float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(GeofenceStatusKey, status),
		attribute.Float64(GeofenceDistanceKey, distanceM),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
