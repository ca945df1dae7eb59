// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package network binds network camera MJPEG streams (IP Webcam style
// "/video" endpoints) as capture sinks.
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/capture/mjpeg"
	"github.com/attendify/presence/internal/core/urlutil"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/platform/httpx"
	"github.com/rs/zerolog"
)

const errBodyPreview = 512

// Opener implements capture.StreamOpener over HTTP.
type Opener struct {
	client *http.Client
	opts   mjpeg.Options
	logger zerolog.Logger
}

// NewOpener builds an opener. setupTimeout bounds dialing and response headers;
// the stream itself has no deadline. stallTimeout fails a stream that stops sending frames.
func NewOpener(setupTimeout, stallTimeout time.Duration) *Opener {
	return NewOpenerWithClient(httpx.NewStreamClient(setupTimeout), stallTimeout)
}

// NewOpenerWithClient is NewOpener with a caller-supplied client.
func NewOpenerWithClient(client *http.Client, stallTimeout time.Duration) *Opener {
	return &Opener{
		client: client,
		opts:   mjpeg.Options{StallTimeout: stallTimeout},
		logger: xglog.WithComponent("capture.network"),
	}
}

var _ capture.StreamOpener = (*Opener)(nil)

// OpenStream connects to streamURL. ctx bounds the connect phase only; the
// returned sink lives until it is closed or the stream fails.
func (o *Opener) OpenStream(ctx context.Context, streamURL string) (capture.Sink, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, streamURL, nil)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("%w: %v", capture.ErrSourceUnreachable, err)
	}
	req.Header.Set("Accept", "multipart/x-mixed-replace, image/jpeg")

	resp, err := o.client.Do(req)
	if !stop() {
		// ctx ended while connecting
		if err == nil {
			_ = resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("%w: %w", capture.ErrSourceUnreachable, ctx.Err())
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", capture.ErrSourceUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyPreview))
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: status %d: %s", capture.ErrSourceUnreachable, resp.StatusCode, preview)
	}

	boundary, err := mjpeg.BoundaryFromContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %w", capture.ErrSourceUnreachable, err)
	}

	o.logger.Debug().
		Str(xglog.FieldEvent, "capture.stream_connected").
		Str(xglog.FieldStreamURL, urlutil.SanitizeURL(streamURL)).
		Str("boundary", boundary).
		Msg("network stream connected")

	return &streamSink{Sink: mjpeg.NewSink(resp.Body, boundary, o.opts), cancel: cancel}, nil
}

// streamSink ties the request context to the sink lifetime.
type streamSink struct {
	*mjpeg.Sink
	cancel context.CancelFunc
}

func (s *streamSink) Close() error {
	s.cancel()
	return s.Sink.Close()
}
