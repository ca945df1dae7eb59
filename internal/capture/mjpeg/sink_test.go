// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mjpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writePart writes one JPEG part. Errors are ignored: the reader may close
// the pipe early on purpose.
func writePart(w io.Writer, boundary string, payload []byte) {
	_, _ = fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(payload))
	_, _ = w.Write(payload)
	_, _ = io.WriteString(w, "\r\n")
}

// writeEnd writes the closing delimiter so the last part is complete.
func writeEnd(w io.Writer, boundary string) {
	_, _ = fmt.Fprintf(w, "--%s--\r\n", boundary)
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestBoundaryFromContentType(t *testing.T) {
	tests := []struct {
		ct, want string
		ok       bool
	}{
		{"multipart/x-mixed-replace; boundary=Ba4oTvQMY8ew04N8dcnM", "Ba4oTvQMY8ew04N8dcnM", true},
		{"multipart/x-mixed-replace;boundary=--myboundary", "myboundary", true},
		{"multipart/x-mixed-replace", "", false},
		{"image/jpeg", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := BoundaryFromContentType(tt.ct)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrNotMultipart, tt.ct)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSink_KeepsLatestFrame(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewSink(pr, "frame", Options{})
	defer s.Close()

	_, ok := s.Latest()
	assert.False(t, ok)

	go func() {
		writePart(pw, "frame", []byte("first"))
		writePart(pw, "frame", []byte("second"))
		writePart(pw, "frame", []byte("third"))
		writeEnd(pw, "frame")
	}()

	waitClosed(t, s.Ready(), "ready")
	require.Eventually(t, func() bool { return s.Frames() == 3 }, 2*time.Second, 5*time.Millisecond)
	got, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, []byte("third"), got)
	assert.False(t, s.LastFrameAt().IsZero())
}

func TestSink_EndOfStreamIsError(t *testing.T) {
	var buf bytes.Buffer
	writePart(&buf, "b", []byte("only"))
	writeEnd(&buf, "b")
	s := NewSink(io.NopCloser(&buf), "b", Options{})

	waitClosed(t, s.Done(), "done")
	assert.ErrorIs(t, s.Err(), io.ErrUnexpectedEOF)
	got, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, []byte("only"), got)
	require.NoError(t, s.Close())
}

func TestSink_SkipsNonImageParts(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewSink(pr, "b", Options{})
	defer s.Close()

	go func() {
		_, _ = io.WriteString(pw, "--b\r\nContent-Type: text/plain\r\n\r\nhello\r\n")
		writePart(pw, "b", []byte("jpeg"))
		writeEnd(pw, "b")
	}()
	waitClosed(t, s.Ready(), "ready")
	got, _ := s.Latest()
	assert.Equal(t, []byte("jpeg"), got)
}

func TestSink_FrameTooLarge(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewSink(pr, "b", Options{MaxFrameBytes: 4})
	go func() {
		writePart(pw, "b", []byte("toolarge"))
	}()
	waitClosed(t, s.Done(), "done")
	assert.True(t, errors.Is(s.Err(), ErrFrameTooLarge))
	_ = s.Close()
	_ = pw.Close()
}

func TestSink_Stall(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewSink(pr, "b", Options{StallTimeout: 50 * time.Millisecond})

	waitClosed(t, s.Done(), "done")
	assert.True(t, errors.Is(s.Err(), ErrStalled))
	_ = s.Close()
}

func TestSink_CloseClearsErrAndIsIdempotent(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewSink(pr, "b", Options{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	waitClosed(t, s.Done(), "done")
	assert.NoError(t, s.Err())
}
