// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attendify/presence/internal/core/urlutil"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/metrics"
	"github.com/attendify/presence/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a Controller. Zero values take the documented defaults.
type Options struct {
	Devices    DeviceOpener
	Streams    StreamOpener
	Dispatcher Dispatcher

	SampleInterval time.Duration // 5s
	JPEGQuality    int           // 85
	MaxWidth       int           // 0 = native
	AcquireTimeout time.Duration // 15s
	ClassID        *float64
	Device         DeviceRequest // 1280x720, facing "user", no audio

	NewTicker func(time.Duration) Ticker
	Now       func() time.Time
	NewID     func() string
}

// Ticker is the sampling clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

func (o *Options) applyDefaults() {
	if o.SampleInterval <= 0 {
		o.SampleInterval = 5 * time.Second
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = 85
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 15 * time.Second
	}
	if o.Device.Width <= 0 || o.Device.Height <= 0 {
		o.Device.Width, o.Device.Height = 1280, 720
	}
	if o.Device.Facing == "" {
		o.Device.Facing = "user"
	}
	if o.NewTicker == nil {
		o.NewTicker = newRealTicker
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// session is one Streaming period. Its in-flight flag is scoped to it so a
// late dispatch from an old session never unblocks a new one.
type session struct {
	gen      uint64
	mode     SourceMode
	sink     Sink
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight atomic.Bool
}

// Controller is the capture session lifecycle. All methods are goroutine-safe.
// Listener callbacks run outside the lock on the goroutine that produced the event.
type Controller struct {
	opts   Options
	logger zerolog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	mode          SourceMode
	state         State
	active        bool
	streamAddr    string
	connecting    bool
	generation    uint64
	frameCount    int64
	hist          history
	lastErr       error
	cancelAcquire context.CancelFunc
	sess          *session
	interval      time.Duration
	classID       *float64

	recognized listenerSet[RecognizedFunc]
	faces      listenerSet[FaceDetectedFunc]
	states     listenerSet[StateChangeFunc]
}

// NewController creates an idle controller in Local mode.
func NewController(opts Options) *Controller {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:       opts,
		logger:     xglog.WithComponent("capture"),
		baseCtx:    ctx,
		cancelBase: cancel,
		interval:   opts.SampleInterval,
		classID:    opts.ClassID,
	}
	metrics.SetCaptureState(StateIdle.String())
	return c
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:         c.state.String(),
		Active:        c.active,
		Mode:          c.mode.String(),
		StreamAddress: c.streamAddr,
		Connecting:    c.connecting,
		FrameCount:    c.frameCount,
		Generation:    c.generation,
		LastError:     UserMessage(c.lastErr),
		LastErrorCode: ErrorCode(c.lastErr),
		History:       c.hist.latestFirst(),
	}
}

func (c *Controller) transitionLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	metrics.SetCaptureState(to.String())
	c.logger.Info().
		Str(xglog.FieldEvent, "capture.state_changed").
		Str(xglog.FieldOldState, from.String()).
		Str(xglog.FieldNewState, to.String()).
		Str(xglog.FieldSourceMode, c.mode.String()).
		Uint64(xglog.FieldGeneration, c.generation).
		Msg("capture state changed")
}

// SetSampleInterval applies to the next session.
func (c *Controller) SetSampleInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
}

// SetClassID sets the class attached to subsequent submissions. nil clears it.
func (c *Controller) SetClassID(id *float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == nil {
		c.classID = nil
		return
	}
	v := *id
	c.classID = &v
}

// SetActive starts or stops the session.
//
// Starting in Network mode without a connected address fails with
// ErrNotConnected and leaves the session Idle. Starting while active is a
// no-op. Acquisition itself is asynchronous; observe OnStateChange for the
// Streaming or Error outcome.
func (c *Controller) SetActive(active bool) error {
	if !active {
		c.teardown(0, false)
		return nil
	}
	return c.activate()
}

func (c *Controller) activate() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.active {
		c.mu.Unlock()
		return nil
	}
	if c.mode == SourceNetwork && c.streamAddr == "" {
		c.lastErr = ErrNotConnected
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emitState(snap)
		return ErrNotConnected
	}

	c.active = true
	c.generation++
	gen := c.generation
	c.lastErr = nil
	c.connecting = c.mode == SourceNetwork
	c.transitionLocked(StateAcquiring)

	ctx, cancel := context.WithTimeout(c.baseCtx, c.opts.AcquireTimeout)
	c.cancelAcquire = cancel
	mode, addr := c.mode, c.streamAddr
	snap := c.snapshotLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.emitState(snap)
	go c.acquire(ctx, gen, mode, addr)
	return nil
}

func (c *Controller) open(ctx context.Context, mode SourceMode, addr string) (Sink, error) {
	switch mode {
	case SourceLocal:
		if c.opts.Devices == nil {
			return nil, errors.New("no local device support configured")
		}
		return c.opts.Devices.OpenDevice(ctx, c.opts.Device)
	case SourceNetwork:
		if c.opts.Streams == nil {
			return nil, errors.New("no network stream support configured")
		}
		return c.opts.Streams.OpenStream(ctx, addr)
	}
	return nil, fmt.Errorf("unknown source mode %v", mode)
}

// awaitFirstFrame blocks until the sink produced a frame, failed, or ctx ended.
func awaitFirstFrame(ctx context.Context, sink Sink) error {
	select {
	case <-sink.Ready():
		return nil
	case <-sink.Done():
		if err := sink.Err(); err != nil {
			return err
		}
		return io.ErrUnexpectedEOF
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classify tags a source failure with the mode-specific sentinel.
func classify(mode SourceMode, err error) error {
	if errors.Is(err, ErrAcquisitionDenied) || errors.Is(err, ErrSourceUnreachable) {
		return err
	}
	if mode == SourceNetwork {
		return fmt.Errorf("%w: %w", ErrSourceUnreachable, err)
	}
	return fmt.Errorf("%w: %w", ErrAcquisitionDenied, err)
}

func (c *Controller) acquire(ctx context.Context, gen uint64, mode SourceMode, addr string) {
	defer c.wg.Done()

	ctx, span := telemetry.StartSpan(ctx, "capture.acquire",
		telemetry.CaptureAttributes(mode.String(), gen, urlutil.SanitizeURL(addr))...)
	start := time.Now()

	sink, err := c.open(ctx, mode, addr)
	if err == nil {
		if err = awaitFirstFrame(ctx, sink); err != nil {
			_ = sink.Close()
			sink = nil
		}
	}
	metrics.ObserveCaptureAcquire(mode.String(), err == nil, time.Since(start))
	telemetry.EndSpan(span, err, "acquire")

	if err != nil {
		c.failSession(gen, mode, classify(mode, err))
		return
	}

	c.mu.Lock()
	if c.generation != gen || !c.active {
		c.mu.Unlock()
		_ = sink.Close()
		c.logger.Debug().Str(xglog.FieldEvent, "capture.stale_acquire").Uint64(xglog.FieldGeneration, gen).
			Msg("released sink acquired after deactivation")
		return
	}
	cancelAcquire := c.cancelAcquire
	c.cancelAcquire = nil

	sessCtx, sessCancel := context.WithCancel(c.baseCtx)
	sess := &session{gen: gen, mode: mode, sink: sink, ctx: sessCtx, cancel: sessCancel}
	c.sess = sess
	c.connecting = false
	c.transitionLocked(StateStreaming)
	interval := c.interval
	snap := c.snapshotLocked()
	c.wg.Add(2)
	c.mu.Unlock()

	if cancelAcquire != nil {
		cancelAcquire()
	}
	c.logger.Info().
		Str(xglog.FieldEvent, "capture.streaming").
		Str(xglog.FieldSourceMode, mode.String()).
		Str(xglog.FieldStreamURL, urlutil.SanitizeURL(addr)).
		Dur("sample_interval", interval).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("capture source acquired")

	c.emitState(snap)
	go c.runSampler(sess, interval)
	go c.watchSink(sess)
}

// watchSink turns a mid-stream sink failure into a forced stop.
func (c *Controller) watchSink(sess *session) {
	defer c.wg.Done()
	select {
	case <-sess.ctx.Done():
	case <-sess.sink.Done():
		err := sess.sink.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		c.failSession(sess.gen, sess.mode, classify(sess.mode, err))
	}
}

// failSession records err on the live session gen, moves it to Error and
// forces deactivation. The error text survives the forced stop.
func (c *Controller) failSession(gen uint64, mode SourceMode, err error) {
	c.mu.Lock()
	if c.generation != gen || !c.active {
		c.mu.Unlock()
		return
	}
	c.lastErr = err
	c.connecting = false
	if mode == SourceNetwork {
		c.streamAddr = ""
	}
	c.transitionLocked(StateError)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.IncCaptureFailure(ErrorCode(err))
	c.logger.Error().Err(err).
		Str(xglog.FieldEvent, "capture.failed").
		Str(xglog.FieldSourceMode, mode.String()).
		Uint64(xglog.FieldGeneration, gen).
		Msg("capture source failed")

	c.emitState(snap)
	c.teardown(gen, true)
}

// teardown releases everything the session owns and returns to Idle.
// expectGen != 0 restricts it to that generation. forced keeps the error text.
func (c *Controller) teardown(expectGen uint64, forced bool) {
	c.mu.Lock()
	if expectGen != 0 && c.generation != expectGen {
		c.mu.Unlock()
		return
	}
	changed := c.active || c.state != StateIdle || c.connecting || (!forced && c.lastErr != nil)

	c.active = false
	c.generation++
	cancelAcquire := c.cancelAcquire
	c.cancelAcquire = nil
	sess := c.sess
	c.sess = nil
	c.frameCount = 0
	c.hist.reset()
	c.connecting = false
	if !forced {
		c.lastErr = nil
	}
	c.transitionLocked(StateIdle)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if cancelAcquire != nil {
		cancelAcquire()
	}
	if sess != nil {
		sess.cancel()
		if err := sess.sink.Close(); err != nil {
			c.logger.Warn().Err(err).Str(xglog.FieldEvent, "capture.release_failed").Msg("sink close failed")
		}
	}
	if !changed {
		return
	}
	c.logger.Info().Str(xglog.FieldEvent, "capture.deactivated").Bool("forced", forced).Msg("capture session stopped")
	c.emitState(snap)
}

// SetSourceMode switches between Local and Network. An active session is
// stopped first; switching to Local discards the connected address.
func (c *Controller) SetSourceMode(mode SourceMode) {
	c.mu.Lock()
	if mode == c.mode {
		c.mu.Unlock()
		return
	}
	active := c.active
	c.mu.Unlock()

	if active {
		c.teardown(0, false)
	}

	c.mu.Lock()
	c.mode = mode
	c.lastErr = nil
	if mode == SourceLocal {
		c.streamAddr = ""
		c.connecting = false
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info().Str(xglog.FieldEvent, "capture.mode_changed").Str(xglog.FieldSourceMode, mode.String()).
		Msg("capture source mode changed")
	c.emitState(snap)
}

// ConnectNetworkSource normalizes raw into a stream address and stores it.
// The controller switches to Network mode if needed. An inactive session is
// started; an active one is restarted when the address changed.
func (c *Controller) ConnectNetworkSource(raw string) (string, error) {
	addr, err := NormalizeStreamAddress(raw)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.connecting = false
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emitState(snap)
		return "", err
	}

	c.SetSourceMode(SourceNetwork)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	prev := c.streamAddr
	active := c.active
	c.streamAddr = addr
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info().Str(xglog.FieldEvent, "capture.connect").Str(xglog.FieldStreamURL, urlutil.SanitizeURL(addr)).
		Msg("network camera address set")

	if active && prev != addr {
		c.teardown(0, false)
		c.mu.Lock()
		c.streamAddr = addr
		c.mu.Unlock()
		active = false
	}
	if !active {
		if err := c.activate(); err != nil {
			return addr, err
		}
	}
	return addr, nil
}

// Close stops the session and waits for every goroutine the controller started.
// It must not be called from a listener callback.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.teardown(0, false)
	c.cancelBase()
	c.wg.Wait()
	return nil
}
