// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package device reads a local camera through an ffmpeg child process that
// emits an MJPEG multipart stream on stdout.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/capture/mjpeg"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/procgroup"
	"github.com/rs/zerolog"
)

const (
	stderrLines      = 50
	defaultStopGrace = 2 * time.Second
)

// Config describes the ffmpeg input.
type Config struct {
	Bin         string
	InputFormat string
	// Device is used when Devices has no entry for the requested facing.
	Device    string
	Devices   map[string]string
	Framerate int

	StallTimeout time.Duration
	StopGrace    time.Duration
}

// Opener implements capture.DeviceOpener.
type Opener struct {
	cfg     Config
	logger  zerolog.Logger
	command func(name string, args ...string) *exec.Cmd
}

// NewOpener returns an opener for cfg.
func NewOpener(cfg Config) *Opener {
	if cfg.Bin == "" {
		cfg.Bin = "ffmpeg"
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	return &Opener{cfg: cfg, logger: xglog.WithComponent("capture.device"), command: exec.Command}
}

var _ capture.DeviceOpener = (*Opener)(nil)

// ResolveDevice picks the device for a facing hint.
func (c Config) ResolveDevice(facing string) string {
	if d, ok := c.Devices[facing]; ok && d != "" {
		return d
	}
	return c.Device
}

// BuildArgs renders the ffmpeg command line for req.
func BuildArgs(cfg Config, req capture.DeviceRequest) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if cfg.InputFormat != "" {
		args = append(args, "-f", cfg.InputFormat)
	}
	if req.Width > 0 && req.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", req.Width, req.Height))
	}
	if cfg.Framerate > 0 {
		args = append(args, "-framerate", strconv.Itoa(cfg.Framerate))
	}
	args = append(args,
		"-i", cfg.ResolveDevice(req.Facing),
		"-an",
		"-c:v", "mjpeg",
		"-q:v", "5",
		"-f", "mpjpeg",
		"pipe:1",
	)
	return args
}

// OpenDevice starts ffmpeg. The child outlives ctx; it is stopped by closing the sink.
func (o *Opener) OpenDevice(ctx context.Context, req capture.DeviceRequest) (capture.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.cfg.ResolveDevice(req.Facing) == "" {
		return nil, fmt.Errorf("%w: no device configured for facing %q", capture.ErrAcquisitionDenied, req.Facing)
	}

	args := BuildArgs(o.cfg, req)
	cmd := o.command(o.cfg.Bin, args...)
	procgroup.Set(cmd)

	pr, pw := io.Pipe()
	stderr := NewLineRing(stderrLines)
	cmd.Stdout = pw
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return nil, fmt.Errorf("%w: start %s: %w", capture.ErrAcquisitionDenied, o.cfg.Bin, err)
	}

	logger := o.logger.With().Int(xglog.FieldPID, cmd.Process.Pid).
		Str(xglog.FieldDevice, o.cfg.ResolveDevice(req.Facing)).Logger()
	logger.Info().
		Str(xglog.FieldEvent, "capture.device_started").
		Str(xglog.FieldResolution, fmt.Sprintf("%dx%d", req.Width, req.Height)).
		Strs("args", args).
		Msg("ffmpeg device reader started")

	s := &sink{
		Sink:   mjpeg.NewSink(pr, mjpeg.FFmpegBoundary, mjpeg.Options{StallTimeout: o.cfg.StallTimeout}),
		cmd:    cmd,
		waitCh: make(chan error, 1),
		stderr: stderr,
		grace:  o.cfg.StopGrace,
		logger: logger,
	}
	go s.wait(pw)
	return s, nil
}

// sink couples the MJPEG reader to the child process.
type sink struct {
	*mjpeg.Sink
	cmd    *exec.Cmd
	waitCh chan error
	stderr *LineRing
	grace  time.Duration
	logger zerolog.Logger

	closeOnce sync.Once
}

// wait reaps the child and ends the stream with its exit reason.
func (s *sink) wait(pw *io.PipeWriter) {
	err := s.cmd.Wait()
	s.stderr.Flush()
	if err != nil {
		_ = pw.CloseWithError(fmt.Errorf("ffmpeg exited: %w: %s", err, s.stderr.Tail(3)))
	} else {
		_ = pw.Close()
	}
	s.waitCh <- err
}

// Close stops the child (SIGTERM, then SIGKILL after the grace period) and the reader.
func (s *sink) Close() error {
	s.closeOnce.Do(func() {
		err := procgroup.Terminate(s.cmd, s.waitCh, s.grace)
		_ = s.Sink.Close()

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.logger.Warn().Err(err).Str(xglog.FieldEvent, "capture.device_stop_failed").Msg("ffmpeg stop failed")
			return
		}
		s.logger.Info().Str(xglog.FieldEvent, "capture.device_stopped").Msg("ffmpeg device reader stopped")
	})
	return nil
}
