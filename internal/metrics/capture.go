// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptureSessionState reports the active capture lifecycle state (1 for the current state).
	CaptureSessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "presence_capture_session_state",
		Help: "Capture session lifecycle state (current state=1, others 0)",
	}, []string{"state"})

	// CaptureAcquireDuration tracks the time from activation to the first usable frame.
	CaptureAcquireDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "presence_capture_acquire_duration_seconds",
		Help:    "Time taken to acquire a capture source",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	}, []string{"mode", "result"})

	// CaptureFramesTotal counts frames drawn and handed to recognition.
	CaptureFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_capture_frames_total",
		Help: "Total number of frames captured for recognition",
	}, []string{"mode"})

	// CaptureTicksSkippedTotal counts sampling ticks that did not produce a submission.
	CaptureTicksSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_capture_ticks_skipped_total",
		Help: "Total number of sampling ticks skipped by reason",
	}, []string{"reason"})

	// CaptureFailuresTotal counts recoverable and fatal capture failures.
	CaptureFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_capture_failures_total",
		Help: "Total number of capture failures by kind",
	}, []string{"kind"})
)

var captureStates = []string{"idle", "acquiring", "streaming", "error"}

// SetCaptureState records the current capture lifecycle state.
func SetCaptureState(state string) {
	for _, s := range captureStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		CaptureSessionState.WithLabelValues(s).Set(value)
	}
}

// ObserveCaptureAcquire records an acquisition attempt outcome and latency.
func ObserveCaptureAcquire(mode string, success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	CaptureAcquireDuration.WithLabelValues(mode, result).Observe(duration.Seconds())
}

// IncCaptureFrame records a captured frame for the given source mode.
func IncCaptureFrame(mode string) {
	CaptureFramesTotal.WithLabelValues(mode).Inc()
}

// IncTickSkipped records a skipped sampling tick ("in_flight", "not_ready").
func IncTickSkipped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	CaptureTicksSkippedTotal.WithLabelValues(reason).Inc()
}

// IncCaptureFailure records a capture failure ("draw", "acquisition_denied", "source_unreachable").
func IncCaptureFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	CaptureFailuresTotal.WithLabelValues(kind).Inc()
}
