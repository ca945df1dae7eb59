// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package geofence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var campus = Zone{CenterLat: 40.7128, CenterLng: -74.006, RadiusM: 500}

type recorder struct {
	mu       sync.Mutex
	statuses []Status
	samples  []*Sample
}

func (r *recorder) fn(st Status, s *Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
	r.samples = append(r.samples, s)
}

func (r *recorder) last() (Status, *Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return StatusChecking, nil
	}
	return r.statuses[len(r.statuses)-1], r.samples[len(r.samples)-1]
}

func newMonitor(t *testing.T) (*Monitor, *PushProvider, *recorder) {
	t.Helper()
	p := NewPushProvider()
	m := NewMonitor(p, campus, WatchOptions{HighAccuracy: true})
	rec := &recorder{}
	m.OnStatusChange(rec.fn)
	t.Cleanup(m.Close)
	return m, p, rec
}

func TestMonitor_InsideOutside(t *testing.T) {
	m, p, rec := newMonitor(t)
	m.SetActive(true)
	assert.Equal(t, 1, p.Watches())
	assert.Equal(t, StatusChecking, m.Snapshot().Status)

	p.Push(Sample{Latitude: northOf(campus.CenterLat, 400), Longitude: campus.CenterLng, Accuracy: 12})
	st, s := rec.last()
	assert.Equal(t, StatusInside, st)
	require.NotNil(t, s)
	assert.Equal(t, 12.0, s.Accuracy)
	assert.False(t, s.ObservedAt.IsZero())

	p.Push(Sample{Latitude: northOf(campus.CenterLat, 600), Longitude: campus.CenterLng})
	snap := m.Snapshot()
	assert.Equal(t, StatusOutside, snap.Status)
	require.NotNil(t, snap.DistanceM)
	assert.InDelta(t, 600, *snap.DistanceM, 0.01)
	assert.Empty(t, snap.Error)
}

func TestMonitor_ErrorKeepsWatch(t *testing.T) {
	m, p, rec := newMonitor(t)
	m.SetActive(true)

	p.Fail(&LocationError{Reason: ReasonPermissionDenied})
	snap := m.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, MsgUnavailable, snap.Error)
	assert.Equal(t, ReasonPermissionDenied, snap.Reason)
	assert.Equal(t, 1, p.Watches())

	p.Fail(errors.New("weird"))
	assert.Equal(t, ReasonPositionUnavailable, m.Snapshot().Reason)

	// a later fix clears the error
	p.Push(Sample{Latitude: campus.CenterLat, Longitude: campus.CenterLng})
	snap = m.Snapshot()
	assert.Equal(t, StatusInside, snap.Status)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Reason)
	st, _ := rec.last()
	assert.Equal(t, StatusInside, st)
}

func TestMonitor_Unsupported(t *testing.T) {
	m := NewMonitor(Unsupported{}, campus, DefaultWatchOptions())
	rec := &recorder{}
	m.OnStatusChange(rec.fn)

	m.SetActive(true)
	snap := m.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, MsgUnsupported, snap.Error)
	assert.Equal(t, ReasonUnsupported, snap.Reason)
	st, s := rec.last()
	assert.Equal(t, StatusError, st)
	assert.Nil(t, s)

	m.SetActive(false)
	assert.Equal(t, StatusChecking, m.Snapshot().Status)
}

func TestMonitor_DeactivateClearsWatchAndSample(t *testing.T) {
	m, p, rec := newMonitor(t)
	m.SetActive(true)
	p.Push(Sample{Latitude: campus.CenterLat, Longitude: campus.CenterLng})

	m.SetActive(false)
	snap := m.Snapshot()
	assert.False(t, snap.Active)
	assert.Equal(t, StatusChecking, snap.Status)
	assert.Nil(t, snap.Sample)
	assert.Nil(t, snap.DistanceM)
	assert.Zero(t, p.Watches())

	rec.mu.Lock()
	n := len(rec.statuses)
	rec.mu.Unlock()

	// idempotent, and late samples are ignored
	m.SetActive(false)
	p.Push(Sample{Latitude: campus.CenterLat, Longitude: campus.CenterLng})
	rec.mu.Lock()
	assert.Len(t, rec.statuses, n)
	rec.mu.Unlock()
	assert.Equal(t, StatusChecking, m.Snapshot().Status)
}

func TestMonitor_ActivateUsesFreshCachedSample(t *testing.T) {
	p := NewPushProvider()
	p.Push(Sample{Latitude: campus.CenterLat, Longitude: campus.CenterLng})

	m := NewMonitor(p, campus, WatchOptions{MaximumAge: time.Minute})
	defer m.Close()
	m.SetActive(true)
	assert.Equal(t, StatusInside, m.Snapshot().Status)
}

func TestMonitor_StaleCachedSampleIgnored(t *testing.T) {
	p := NewPushProvider()
	p.Push(Sample{Latitude: campus.CenterLat, Longitude: campus.CenterLng, ObservedAt: time.Now().Add(-2 * time.Minute)})

	m := NewMonitor(p, campus, WatchOptions{MaximumAge: time.Minute})
	defer m.Close()
	m.SetActive(true)
	assert.Equal(t, StatusChecking, m.Snapshot().Status)
}

func TestMonitor_WatchTimeout(t *testing.T) {
	p := NewPushProvider()
	m := NewMonitor(p, campus, WatchOptions{Timeout: 20 * time.Millisecond})
	defer m.Close()

	m.SetActive(true)
	require.Eventually(t, func() bool { return m.Snapshot().Status == StatusError }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ReasonTimeout, m.Snapshot().Reason)
	assert.Equal(t, 1, p.Watches())
}

func TestMonitor_SetReferenceReclassifies(t *testing.T) {
	m, p, rec := newMonitor(t)
	m.SetActive(true)
	p.Push(Sample{Latitude: northOf(campus.CenterLat, 600), Longitude: campus.CenterLng})
	assert.Equal(t, StatusOutside, m.Snapshot().Status)

	wider := campus
	wider.RadiusM = 1000
	require.NoError(t, m.SetReference(wider))
	assert.Equal(t, StatusInside, m.Snapshot().Status)
	st, _ := rec.last()
	assert.Equal(t, StatusInside, st)
	assert.Equal(t, wider, m.Zone())

	assert.Error(t, m.SetReference(Zone{RadiusM: -1}))
}

func TestParseReason(t *testing.T) {
	for in, want := range map[string]Reason{
		"1":                    ReasonPermissionDenied,
		"position_unavailable": ReasonPositionUnavailable,
		"3":                    ReasonTimeout,
	} {
		got, err := ParseReason(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseReason("4")
	assert.Error(t, err)
	assert.Equal(t, ReasonUnsupported, ReasonOf(ErrLocationUnsupported))
}
