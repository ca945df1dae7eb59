// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventDroppedTotal counts events dropped for slow subscribers.
	EventDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_event_dropped_total",
		Help: "Total number of event hub message drops by topic and reason",
	}, []string{"topic", "reason"})

	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_event_subscribers",
		Help: "Current number of event hub subscribers",
	})
)

// IncEventDrop records a dropped event with a concrete reason.
func IncEventDrop(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	EventDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// AddEventSubscribers adjusts the subscriber gauge.
func AddEventSubscribers(delta float64) {
	eventSubscribers.Add(delta)
}
