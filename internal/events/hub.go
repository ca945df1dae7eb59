// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events fans capture and geofence notifications out to live
// subscribers such as the websocket endpoint.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/metrics"
)

// Topics.
const (
	TopicCaptureState      = "capture.state"
	TopicCaptureRecognized = "capture.recognized"
	TopicFacesDetected     = "capture.faces"
	TopicGeofenceStatus    = "geofence.status"
)

// Event is one published notification.
type Event struct {
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
	Data  any       `json:"data"`
}

const (
	subscriberBuffer = 64
	dropLogEvery     = 100
)

var dropCount atomic.Uint64

// Hub is an in-memory pub/sub. Publish never blocks: a subscriber whose
// buffer is full loses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{}), now: time.Now}
}

// Subscription receives events for its topics (all topics when none given).
type Subscription struct {
	hub    *Hub
	topics map[string]struct{}
	ch     chan Event
	once   sync.Once
}

// C is closed when the subscription or the hub is closed.
func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) wants(topic string) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() error {
	s.hub.mu.Lock()
	_, ok := s.hub.subs[s]
	delete(s.hub.subs, s)
	s.hub.mu.Unlock()
	if ok {
		metrics.AddEventSubscribers(-1)
	}
	s.once.Do(func() { close(s.ch) })
	return nil
}

// Subscribe registers a subscriber.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	s := &Subscription{hub: h, ch: make(chan Event, subscriberBuffer)}
	if len(topics) > 0 {
		s.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	h.subs[s] = struct{}{}
	metrics.AddEventSubscribers(1)
	return s
}

// Publish delivers data to every interested subscriber.
func (h *Hub) Publish(topic string, data any) {
	ev := Event{Topic: topic, At: h.now(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			metrics.IncEventDrop(topic, "subscriber_full")
			if n := dropCount.Add(1); n%dropLogEvery == 1 {
				xglog.L().Warn().
					Str(xglog.FieldEvent, "events.dropped").
					Str("topic", topic).
					Uint64("dropped", n).
					Msg("event hub dropped event for slow subscriber")
			}
		}
	}
}

// Close closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for s := range subs {
		metrics.AddEventSubscribers(-1)
		s.once.Do(func() { close(s.ch) })
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
