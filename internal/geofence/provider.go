// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package geofence

import (
	"sync"
	"time"
)

// Watcher receives position updates and errors from a provider.
type Watcher struct {
	OnSample func(Sample)
	OnError  func(error)
}

// LocationProvider is a continuous position source.
type LocationProvider interface {
	// Supported reports whether the platform can deliver positions at all.
	Supported() bool
	// Watch registers w until the returned cancel func is called.
	Watch(opts WatchOptions, w Watcher) (cancel func())
}

// PushProvider is fed by clients (HTTP or in-process) and fans samples out
// to registered watches. A watch that sees no sample within its Timeout
// gets a timeout error and keeps waiting.
type PushProvider struct {
	mu      sync.Mutex
	nextID  int
	watches map[int]*watch
	last    *Sample
	now     func() time.Time
}

type watch struct {
	opts  WatchOptions
	w     Watcher
	timer *time.Timer
}

// NewPushProvider returns an empty provider.
func NewPushProvider() *PushProvider {
	return &PushProvider{watches: make(map[int]*watch), now: time.Now}
}

// Supported is always true for the push provider.
func (p *PushProvider) Supported() bool { return true }

// Watch registers w. A cached sample younger than opts.MaximumAge is
// delivered immediately.
func (p *PushProvider) Watch(opts WatchOptions, w Watcher) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	wt := &watch{opts: opts, w: w}
	p.watches[id] = wt
	if opts.Timeout > 0 {
		wt.timer = time.AfterFunc(opts.Timeout, func() { p.timeout(id) })
	}
	var cached *Sample
	if p.last != nil && opts.MaximumAge > 0 && p.now().Sub(p.last.ObservedAt) <= opts.MaximumAge {
		s := *p.last
		cached = &s
	}
	p.mu.Unlock()

	if cached != nil && w.OnSample != nil {
		w.OnSample(*cached)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			if wt, ok := p.watches[id]; ok {
				if wt.timer != nil {
					wt.timer.Stop()
				}
				delete(p.watches, id)
			}
			p.mu.Unlock()
		})
	}
}

func (p *PushProvider) timeout(id int) {
	p.mu.Lock()
	wt, ok := p.watches[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	wt.timer.Reset(wt.opts.Timeout)
	p.mu.Unlock()

	if wt.w.OnError != nil {
		wt.w.OnError(&LocationError{Reason: ReasonTimeout, Detail: "no position within " + wt.opts.Timeout.String()})
	}
}

// Push delivers a sample to every watch. A zero ObservedAt is stamped with
// the receive time.
func (p *PushProvider) Push(s Sample) {
	if s.ObservedAt.IsZero() {
		s.ObservedAt = p.now()
	}
	p.mu.Lock()
	last := s
	p.last = &last
	targets := make([]Watcher, 0, len(p.watches))
	for _, wt := range p.watches {
		if wt.timer != nil {
			wt.timer.Reset(wt.opts.Timeout)
		}
		targets = append(targets, wt.w)
	}
	p.mu.Unlock()

	for _, w := range targets {
		if w.OnSample != nil {
			w.OnSample(s)
		}
	}
}

// Fail delivers a location error to every watch.
func (p *PushProvider) Fail(err error) {
	p.mu.Lock()
	targets := make([]Watcher, 0, len(p.watches))
	for _, wt := range p.watches {
		targets = append(targets, wt.w)
	}
	p.mu.Unlock()

	for _, w := range targets {
		if w.OnError != nil {
			w.OnError(err)
		}
	}
}

// Watches reports the number of registered watches.
func (p *PushProvider) Watches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

// Unsupported is a provider for platforms without location services.
type Unsupported struct{}

func (Unsupported) Supported() bool                    { return false }
func (Unsupported) Watch(WatchOptions, Watcher) func() { return func() {} }
