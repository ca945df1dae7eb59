// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"time"

	"github.com/attendify/presence/internal/recognition"
)

// HistoryLimit bounds the rolling result history.
const HistoryLimit = 10

// history keeps the newest HistoryLimit results in arrival order. Not goroutine-safe.
type history struct {
	entries []HistoryEntry
}

// add appends r; now stands in for a missing service timestamp.
func (h *history) add(r recognition.Result, now time.Time) {
	observed := r.CreatedAt
	if observed.IsZero() {
		observed = now
	}
	e := HistoryEntry{Result: r, Label: r.Label(), ObservedAt: observed}
	if r.Score != nil {
		c := r.Confidence()
		e.Confidence = &c
	}
	h.entries = append(h.entries, e)
	if n := len(h.entries); n > HistoryLimit {
		h.entries = append(h.entries[:0:0], h.entries[n-HistoryLimit:]...)
	}
}

func (h *history) reset() { h.entries = nil }

func (h *history) len() int { return len(h.entries) }

// latestFirst returns a reversed copy.
func (h *history) latestFirst() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}
