// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"sync"

	"github.com/attendify/presence/internal/recognition"
)

type (
	RecognizedFunc   func(recognition.Result)
	FaceDetectedFunc func([]recognition.DetectedIdentity)
	StateChangeFunc  func(Snapshot)
)

// listenerSet is a copy-on-read registry of callbacks keyed by registration id.
type listenerSet[F any] struct {
	mu   sync.RWMutex
	next int
	fns  map[int]F
}

func (s *listenerSet[F]) add(fn F) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]F)
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *listenerSet[F]) snapshot() []F {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]F, 0, len(s.fns))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.fns[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// OnRecognized registers fn for every recognition result. The returned func unregisters it.
func (c *Controller) OnRecognized(fn RecognizedFunc) func() { return c.recognized.add(fn) }

// OnFaceDetected registers fn for the per-result identity list.
func (c *Controller) OnFaceDetected(fn FaceDetectedFunc) func() { return c.faces.add(fn) }

// OnStateChange registers fn for session snapshots after every transition.
func (c *Controller) OnStateChange(fn StateChangeFunc) func() { return c.states.add(fn) }

func (c *Controller) emitRecognized(r recognition.Result, ids []recognition.DetectedIdentity) {
	for _, fn := range c.recognized.snapshot() {
		fn(r)
	}
	for _, fn := range c.faces.snapshot() {
		fn(ids)
	}
}

func (c *Controller) emitState(s Snapshot) {
	for _, fn := range c.states.snapshot() {
		fn(s)
	}
}
