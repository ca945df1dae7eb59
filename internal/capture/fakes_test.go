// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attendify/presence/internal/recognition"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type fakeSink struct {
	frame  []byte
	ready  chan struct{}
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	err    error
	closed atomic.Bool
}

func newFakeSink(frame []byte) *fakeSink {
	s := &fakeSink{frame: frame, ready: make(chan struct{}), done: make(chan struct{})}
	if frame != nil {
		close(s.ready)
	}
	return s
}

func (s *fakeSink) Latest() ([]byte, bool) { return s.frame, s.frame != nil }
func (s *fakeSink) Ready() <-chan struct{} { return s.ready }
func (s *fakeSink) Done() <-chan struct{}  { return s.done }
func (s *fakeSink) isClosed() bool         { return s.closed.Load() }

func (s *fakeSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSink) Close() error {
	s.closed.Store(true)
	s.fail(nil)
	return nil
}

func (s *fakeSink) fail(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// fakeOpener serves both local and network acquisition.
type fakeOpener struct {
	mu    sync.Mutex
	sinks []*fakeSink
	frame []byte
	err   error
	gate  chan struct{}
	urls  []string
}

func (o *fakeOpener) open() (Sink, error) {
	if o.gate != nil {
		<-o.gate
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := newFakeSink(o.frame)
	o.sinks = append(o.sinks, s)
	return s, nil
}

func (o *fakeOpener) OpenDevice(_ context.Context, _ DeviceRequest) (Sink, error) { return o.open() }

func (o *fakeOpener) OpenStream(_ context.Context, u string) (Sink, error) {
	o.mu.Lock()
	o.urls = append(o.urls, u)
	o.mu.Unlock()
	return o.open()
}

func (o *fakeOpener) lastSink() *fakeSink {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sinks) == 0 {
		return nil
	}
	return o.sinks[len(o.sinks)-1]
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   atomic.Int32
	subs    []recognition.Submission
	result  recognition.Result
	err     error
	release chan struct{}
}

func (d *fakeDispatcher) Submit(ctx context.Context, s recognition.Submission) (recognition.Result, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.subs = append(d.subs, s)
	release, res, err := d.release, d.result, d.err
	d.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return recognition.Result{}, ctx.Err()
		}
	}
	return res, err
}

func (d *fakeDispatcher) set(res recognition.Result, err error) {
	d.mu.Lock()
	d.result, d.err = res, err
	d.mu.Unlock()
}

type manualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("sampler did not take the tick")
	}
}

// nudge offers a tick without failing when the sampler is busy.
func (m *manualTicker) nudge() {
	select {
	case m.c <- time.Now():
	case <-time.After(10 * time.Millisecond):
	}
}

type harness struct {
	ctrl     *Controller
	opener   *fakeOpener
	disp     *fakeDispatcher
	tickers  chan *manualTicker
	statesMu sync.Mutex
	states   []string
}

func newHarness(t *testing.T, frame []byte) *harness {
	t.Helper()
	h := &harness{
		opener:  &fakeOpener{frame: frame},
		disp:    &fakeDispatcher{},
		tickers: make(chan *manualTicker, 8),
	}
	h.ctrl = NewController(Options{
		Devices:    h.opener,
		Streams:    h.opener,
		Dispatcher: h.disp,
		NewTicker: func(time.Duration) Ticker {
			mt := &manualTicker{c: make(chan time.Time)}
			h.tickers <- mt
			return mt
		},
		NewID: func() string { return "generated" },
	})
	h.ctrl.OnStateChange(func(s Snapshot) {
		h.statesMu.Lock()
		h.states = append(h.states, s.State)
		h.statesMu.Unlock()
	})
	t.Cleanup(func() { _ = h.ctrl.Close() })
	return h
}

func (h *harness) ticker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case mt := <-h.tickers:
		return mt
	case <-time.After(2 * time.Second):
		t.Fatal("sampler never started")
		return nil
	}
}

func (h *harness) sawState(s string) bool {
	h.statesMu.Lock()
	defer h.statesMu.Unlock()
	for _, st := range h.states {
		if st == s {
			return true
		}
	}
	return false
}
