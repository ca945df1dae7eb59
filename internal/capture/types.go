// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capture owns the capture session: acquiring a local device or a
// network camera stream, sampling frames on a fixed cadence and dispatching
// them for recognition with at most one submission in flight.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/attendify/presence/internal/recognition"
)

// SourceMode selects the visual input.
type SourceMode int

const (
	SourceLocal SourceMode = iota
	SourceNetwork
)

func (m SourceMode) String() string {
	switch m {
	case SourceLocal:
		return "local"
	case SourceNetwork:
		return "network"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseSourceMode accepts "local"/"native" and "network"/"ip".
func ParseSourceMode(s string) (SourceMode, error) {
	switch s {
	case "local", "native":
		return SourceLocal, nil
	case "network", "ip":
		return SourceNetwork, nil
	}
	return 0, fmt.Errorf("unknown source mode %q", s)
}

// RecognitionSource maps the mode to the submission source tag.
func (m SourceMode) RecognitionSource() recognition.Source {
	if m == SourceNetwork {
		return recognition.SourceIPWebcam
	}
	return recognition.SourceWebcam
}

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateStreaming
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sink is an acquired source of frames. The controller owns it exclusively.
type Sink interface {
	// Latest returns the most recent encoded frame, or false before the first one.
	Latest() ([]byte, bool)
	// Ready is closed when the first frame arrives.
	Ready() <-chan struct{}
	// Done is closed when the sink stops producing frames.
	Done() <-chan struct{}
	// Err reports why Done was closed; nil after Close.
	Err() error
	Close() error
}

// DeviceRequest describes the preferred local device.
type DeviceRequest struct {
	Width  int
	Height int
	// Facing is "user" (front) or "environment" (rear).
	Facing string
	Audio  bool
}

// DeviceOpener acquires a local camera.
type DeviceOpener interface {
	OpenDevice(ctx context.Context, req DeviceRequest) (Sink, error)
}

// StreamOpener binds a network camera stream.
type StreamOpener interface {
	OpenStream(ctx context.Context, streamURL string) (Sink, error)
}

// Dispatcher submits one frame for recognition.
type Dispatcher interface {
	Submit(ctx context.Context, s recognition.Submission) (recognition.Result, error)
}

// HistoryEntry is a recognition result with its display fields.
type HistoryEntry struct {
	Result     recognition.Result `json:"result"`
	Label      string             `json:"label"`
	Confidence *float64           `json:"confidence,omitempty"`
	ObservedAt time.Time          `json:"observedAt"`
}

// Snapshot is a point-in-time copy of the session for display.
type Snapshot struct {
	State         string         `json:"state"`
	Active        bool           `json:"active"`
	Mode          string         `json:"mode"`
	StreamAddress string         `json:"streamAddress,omitempty"`
	Connecting    bool           `json:"connecting"`
	FrameCount    int64          `json:"frameCount"`
	Generation    uint64         `json:"generation"`
	LastError     string         `json:"lastError,omitempty"`
	LastErrorCode string         `json:"lastErrorCode,omitempty"`
	// History is latest first.
	History []HistoryEntry `json:"history"`
}

// LatestMatched reports whether the newest result in the snapshot is a match.
func (s Snapshot) LatestMatched() bool {
	return len(s.History) > 0 && s.History[0].Result.Matched
}
