// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mjpeg reads multipart/x-mixed-replace JPEG streams and keeps only
// the newest frame. Slow consumers never cause buffering: older frames are
// overwritten, not queued.
package mjpeg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxFrameBytes bounds a single part.
	DefaultMaxFrameBytes = 8 << 20
	// FFmpegBoundary is the boundary the ffmpeg mpjpeg muxer writes.
	FFmpegBoundary = "ffmpeg"
)

var (
	// ErrStalled is reported when no frame arrived within the stall timeout.
	ErrStalled = errors.New("mjpeg: stream stalled")
	// ErrFrameTooLarge is reported when a part exceeds the frame limit.
	ErrFrameTooLarge = errors.New("mjpeg: frame too large")
	// ErrNotMultipart is returned for a content type that is not multipart.
	ErrNotMultipart = errors.New("mjpeg: not a multipart stream")
)

// Options tune a Sink.
type Options struct {
	MaxFrameBytes int64
	// StallTimeout > 0 fails the sink when frames stop arriving.
	StallTimeout time.Duration
}

// Sink consumes a multipart JPEG stream in the background.
type Sink struct {
	body     io.ReadCloser
	boundary string
	opts     Options

	latest   atomic.Pointer[[]byte]
	frames   atomic.Uint64
	lastSeen atomic.Int64

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
	stall  *time.Timer
}

// BoundaryFromContentType extracts the part boundary from a multipart content type.
// A boundary parameter that already carries the leading "--" is tolerated.
func BoundaryFromContentType(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotMultipart, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("%w: %s", ErrNotMultipart, mediaType)
	}
	b := strings.TrimPrefix(params["boundary"], "--")
	if b == "" {
		return "", fmt.Errorf("%w: missing boundary", ErrNotMultipart)
	}
	return b, nil
}

// NewSink starts reading body. The sink owns body and closes it on Close.
func NewSink(body io.ReadCloser, boundary string, opts Options) *Sink {
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = DefaultMaxFrameBytes
	}
	s := &Sink{
		body:     body,
		boundary: boundary,
		opts:     opts,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	if opts.StallTimeout > 0 {
		s.stall = time.AfterFunc(opts.StallTimeout, func() { s.fail(ErrStalled) })
	}
	go s.run()
	return s
}

func (s *Sink) run() {
	defer close(s.done)
	if s.stall != nil {
		defer s.stall.Stop()
	}

	mr := multipart.NewReader(bufio.NewReaderSize(s.body, 64<<10), s.boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			s.fail(err)
			return
		}
		if ct := part.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "image/") {
			_ = part.Close()
			continue
		}

		frame, err := io.ReadAll(io.LimitReader(part, s.opts.MaxFrameBytes+1))
		_ = part.Close()
		if err != nil {
			s.fail(err)
			return
		}
		if int64(len(frame)) > s.opts.MaxFrameBytes {
			s.fail(ErrFrameTooLarge)
			return
		}
		if len(frame) == 0 {
			continue
		}

		s.latest.Store(&frame)
		s.frames.Add(1)
		s.lastSeen.Store(time.Now().UnixNano())
		if s.stall != nil {
			s.stall.Reset(s.opts.StallTimeout)
		}
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// fail records the first error and unblocks the reader.
func (s *Sink) fail(err error) {
	s.mu.Lock()
	if s.err == nil && !s.closed {
		s.err = err
	}
	s.mu.Unlock()
	_ = s.body.Close()
}

// Latest returns the newest complete frame.
func (s *Sink) Latest() ([]byte, bool) {
	p := s.latest.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Ready is closed once the first frame is available.
func (s *Sink) Ready() <-chan struct{} { return s.ready }

// Done is closed when reading stopped.
func (s *Sink) Done() <-chan struct{} { return s.done }

// Err is the reason reading stopped. It is nil after Close.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.err
}

// Frames counts frames received so far.
func (s *Sink) Frames() uint64 { return s.frames.Load() }

// LastFrameAt is the arrival time of the newest frame, zero before the first.
func (s *Sink) LastFrameAt() time.Time {
	ns := s.lastSeen.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Close stops reading and waits for the reader goroutine.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.body.Close()
	<-s.done
	return nil
}
