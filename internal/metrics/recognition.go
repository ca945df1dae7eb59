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
	// RecognitionSubmissionsTotal tracks recognition submissions by outcome.
	RecognitionSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_recognition_submissions_total",
		Help: "Total number of recognition submissions by source and outcome",
	}, []string{"source", "outcome"})

	// RecognitionLatency tracks the round trip of a recognition submission.
	RecognitionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "presence_recognition_latency_seconds",
		Help:    "Recognition submission round-trip latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13},
	}, []string{"source"})

	// CheckInsTotal tracks check-in attempts by outcome.
	CheckInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_checkins_total",
		Help: "Total number of check-in attempts by outcome",
	}, []string{"outcome"})
)

// ObserveRecognition records a submission outcome ("matched", "unmatched", "network_error", "service_error").
func ObserveRecognition(source, outcome string, duration time.Duration) {
	RecognitionSubmissionsTotal.WithLabelValues(source, outcome).Inc()
	RecognitionLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// IncCheckIn records a check-in outcome.
func IncCheckIn(outcome string) {
	CheckInsTotal.WithLabelValues(outcome).Inc()
}
