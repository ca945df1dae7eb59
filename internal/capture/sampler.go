// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"fmt"
	"time"

	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/metrics"
	"github.com/attendify/presence/internal/recognition"
	"github.com/attendify/presence/internal/telemetry"
)

// Tick skip reasons.
const (
	skipInFlight = "in_flight"
	skipNotReady = "not_ready"
)

func (c *Controller) runSampler(sess *session, interval time.Duration) {
	defer c.wg.Done()
	t := c.opts.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-t.C():
			c.sampleOnce(sess)
		}
	}
}

// sampleOnce runs one capture cycle. Ticks never queue: a busy or not yet
// ready session simply drops the tick.
func (c *Controller) sampleOnce(sess *session) {
	if sess.inFlight.Load() {
		metrics.IncTickSkipped(skipInFlight)
		return
	}
	encoded, ok := sess.sink.Latest()
	if !ok {
		metrics.IncTickSkipped(skipNotReady)
		return
	}

	frame, err := rasterize(encoded, c.opts.MaxWidth)
	if err != nil {
		c.recordError(sess.gen, err)
		return
	}

	c.mu.Lock()
	if c.generation != sess.gen {
		c.mu.Unlock()
		return
	}
	c.frameCount++
	count := c.frameCount
	var classID *float64
	if c.classID != nil {
		v := *c.classID
		classID = &v
	}
	c.mu.Unlock()
	metrics.IncCaptureFrame(sess.mode.String())

	dataURL, err := encodeDataURL(frame, c.opts.JPEGQuality)
	if err != nil {
		c.recordError(sess.gen, err)
		return
	}

	sub := recognition.Submission{Image: dataURL, Source: sess.mode.RecognitionSource(), ClassID: classID}
	sess.inFlight.Store(true)
	c.wg.Add(1)
	go c.dispatch(sess, sub, count)
}

func (c *Controller) dispatch(sess *session, sub recognition.Submission, frameCount int64) {
	defer c.wg.Done()
	defer sess.inFlight.Store(false)
	defer func() {
		if r := recover(); r != nil {
			c.recordError(sess.gen, fmt.Errorf("%w: panic: %v", ErrDispatch, r))
		}
	}()

	ctx, span := telemetry.StartSpan(sess.ctx, "capture.dispatch",
		telemetry.SubmissionAttributes(string(sub.Source), frameCount, sub.ClassID)...)
	res, err := c.opts.Dispatcher.Submit(ctx, sub)
	telemetry.EndSpan(span, err, ErrorCode(err))
	if err != nil {
		if sess.ctx.Err() != nil {
			return
		}
		c.recordError(sess.gen, err)
		return
	}

	now := c.opts.Now()
	c.mu.Lock()
	if c.generation != sess.gen {
		c.mu.Unlock()
		return
	}
	c.hist.add(res, now)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info().
		Str(xglog.FieldEvent, "capture.recognized").
		Int64(xglog.FieldFrameCount, frameCount).
		Bool(xglog.FieldMatched, res.Matched).
		Str("label", res.Label()).
		Float64(xglog.FieldScore, res.Confidence()).
		Msg("frame recognized")

	c.emitRecognized(res, []recognition.DetectedIdentity{res.Identity(now, c.opts.NewID)})
	c.emitState(snap)
}

// recordError surfaces a recoverable per-frame failure without stopping the session.
func (c *Controller) recordError(gen uint64, err error) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.lastErr = err
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.IncCaptureFailure(ErrorCode(err))
	c.logger.Warn().Err(err).Str(xglog.FieldEvent, "capture.frame_failed").Uint64(xglog.FieldGeneration, gen).
		Msg(UserMessage(err))
	c.emitState(snap)
}
