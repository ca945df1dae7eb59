// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package geofence

import (
	"sync"

	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/metrics"
	"github.com/rs/zerolog"
)

// StatusFunc observes every published status with the current sample (nil when none).
type StatusFunc func(Status, *Sample)

// Monitor watches a LocationProvider while active and classifies each sample
// against the reference zone. All methods are goroutine-safe; callbacks run
// outside the lock.
type Monitor struct {
	provider LocationProvider
	opts     WatchOptions
	logger   zerolog.Logger

	mu       sync.Mutex
	active   bool
	gen      uint64
	cancel   func()
	zone     Zone
	status   Status
	sample   *Sample
	distance *float64
	errMsg   string
	reason   Reason

	lmu       sync.RWMutex
	nextID    int
	listeners map[int]StatusFunc
}

// NewMonitor returns an inactive monitor in Checking state.
func NewMonitor(provider LocationProvider, zone Zone, opts WatchOptions) *Monitor {
	if provider == nil {
		provider = Unsupported{}
	}
	metrics.SetGeofenceStatus(StatusChecking.String())
	return &Monitor{
		provider:  provider,
		opts:      opts,
		zone:      zone,
		logger:    xglog.WithComponent("geofence"),
		listeners: make(map[int]StatusFunc),
	}
}

// OnStatusChange registers fn; the returned func unregisters it.
func (m *Monitor) OnStatusChange(fn StatusFunc) func() {
	m.lmu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.lmu.Unlock()
	return func() {
		m.lmu.Lock()
		delete(m.listeners, id)
		m.lmu.Unlock()
	}
}

func (m *Monitor) emit(st Status, s *Sample) {
	m.lmu.RLock()
	fns := make([]StatusFunc, 0, len(m.listeners))
	for i := 0; i < m.nextID; i++ {
		if fn, ok := m.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	m.lmu.RUnlock()
	for _, fn := range fns {
		fn(st, s)
	}
}

// Snapshot returns the current view.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Active: m.active,
		Status: m.status,
		Error:  m.errMsg,
		Reason: m.reason,
		Zone:   m.zone,
	}
	if m.sample != nil {
		s := *m.sample
		snap.Sample = &s
	}
	if m.distance != nil {
		d := *m.distance
		snap.DistanceM = &d
	}
	return snap
}

// Zone returns the reference zone.
func (m *Monitor) Zone() Zone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zone
}

func (m *Monitor) setStatusLocked(st Status) {
	if m.status != st {
		m.logger.Info().
			Str(xglog.FieldEvent, "geofence.status_changed").
			Str(xglog.FieldOldState, m.status.String()).
			Str(xglog.FieldNewState, st.String()).
			Msg("geofence status changed")
	}
	m.status = st
	metrics.SetGeofenceStatus(st.String())
}

func (m *Monitor) sampleLocked() *Sample {
	if m.sample == nil {
		return nil
	}
	s := *m.sample
	return &s
}

// SetActive starts or stops the location watch. Both directions are idempotent.
func (m *Monitor) SetActive(active bool) {
	if active {
		m.activate()
		return
	}
	m.deactivate()
}

func (m *Monitor) activate() {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.active = true
	m.gen++
	gen := m.gen

	if !m.provider.Supported() {
		m.errMsg = MsgUnsupported
		m.reason = ReasonUnsupported
		m.setStatusLocked(StatusError)
		m.mu.Unlock()
		metrics.IncLocationError(string(ReasonUnsupported))
		m.logger.Warn().Err(ErrLocationUnsupported).Str(xglog.FieldEvent, "geofence.unsupported").
			Msg("location services unavailable")
		m.emit(StatusError, nil)
		return
	}
	opts := m.opts
	m.mu.Unlock()

	m.logger.Info().Str(xglog.FieldEvent, "geofence.watch_started").
		Bool("high_accuracy", opts.HighAccuracy).
		Dur("timeout", opts.Timeout).
		Dur("maximum_age", opts.MaximumAge).
		Msg("location watch registered")

	cancel := m.provider.Watch(opts, Watcher{
		OnSample: func(s Sample) { m.update(gen, s) },
		OnError:  func(err error) { m.fail(gen, err) },
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.mu.Unlock()
}

func (m *Monitor) deactivate() {
	m.mu.Lock()
	if !m.active && m.status == StatusChecking && m.sample == nil {
		m.mu.Unlock()
		return
	}
	m.active = false
	m.gen++
	cancel := m.cancel
	m.cancel = nil
	m.sample = nil
	m.distance = nil
	m.setStatusLocked(StatusChecking)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.logger.Info().Str(xglog.FieldEvent, "geofence.watch_cleared").Msg("location watch cleared")
	m.emit(StatusChecking, nil)
}

func (m *Monitor) update(gen uint64, s Sample) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	st, d := m.zone.Classify(s)
	m.sample = &s
	m.distance = &d
	m.errMsg = ""
	m.reason = ""
	m.setStatusLocked(st)
	out := m.sampleLocked()
	m.mu.Unlock()

	metrics.SetGeofenceDistance(d)
	m.logger.Debug().
		Str(xglog.FieldEvent, "geofence.sample").
		Str(xglog.FieldGeofenceStatus, st.String()).
		Float64(xglog.FieldDistanceM, d).
		Float64(xglog.FieldAccuracyM, s.Accuracy).
		Msg("location sample classified")
	m.emit(st, out)
}

// fail publishes the fixed location message. The watch stays registered.
func (m *Monitor) fail(gen uint64, err error) {
	reason := ReasonOf(err)
	if reason == "" {
		reason = ReasonPositionUnavailable
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.errMsg = MsgUnavailable
	m.reason = reason
	m.setStatusLocked(StatusError)
	out := m.sampleLocked()
	m.mu.Unlock()

	metrics.IncLocationError(string(reason))
	m.logger.Warn().Err(err).
		Str(xglog.FieldEvent, "geofence.location_error").
		Str(xglog.FieldReason, string(reason)).
		Msg("location update failed")
	m.emit(StatusError, out)
}

// SetReference replaces the reference zone and reclassifies the current sample.
func (m *Monitor) SetReference(z Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.zone = z
	if m.sample == nil || (m.status != StatusInside && m.status != StatusOutside) {
		m.mu.Unlock()
		return nil
	}
	st, d := z.Classify(*m.sample)
	m.distance = &d
	changed := st != m.status
	m.setStatusLocked(st)
	out := m.sampleLocked()
	m.mu.Unlock()

	metrics.SetGeofenceDistance(d)
	if changed {
		m.emit(st, out)
	}
	return nil
}

// Close clears the watch.
func (m *Monitor) Close() {
	m.deactivate()
}
