// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/attendify/presence/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

// mjpegHandler streams frames until the client goes away.
func mjpegHandler(frames int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=Ba4oTvQMY8ew04N8dcnM")
		flusher := w.(http.Flusher)
		for i := 0; i < frames; i++ {
			payload := fmt.Sprintf("frame-%d", i)
			_, _ = fmt.Fprintf(w, "--Ba4oTvQMY8ew04N8dcnM\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n%s\r\n", len(payload), payload)
			flusher.Flush()
		}
		<-r.Context().Done()
	}
}

func TestOpenStream_DeliversFrames(t *testing.T) {
	srv := httptest.NewServer(mjpegHandler(3))
	defer srv.Close()

	o := NewOpenerWithClient(srv.Client(), 0)
	sink, err := o.OpenStream(context.Background(), srv.URL+"/video")
	require.NoError(t, err)

	select {
	case <-sink.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("no frame")
	}
	frame, ok := sink.Latest()
	require.True(t, ok)
	assert.Contains(t, string(frame), "frame-")

	require.NoError(t, sink.Close())
	assert.NoError(t, sink.Err())
}

func TestOpenStream_ConnectContextDoesNotBindStream(t *testing.T) {
	srv := httptest.NewServer(mjpegHandler(2))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sink, err := NewOpenerWithClient(srv.Client(), 0).OpenStream(ctx, srv.URL+"/video")
	require.NoError(t, err)
	cancel()

	select {
	case <-sink.Done():
		t.Fatalf("stream ended after connect context was canceled: %v", sink.Err())
	case <-time.After(100 * time.Millisecond):
	}
	require.NoError(t, sink.Close())
}

func TestOpenStream_Failures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>IP Webcam</html>"))
	}))
	defer plain.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"status", notFound.URL + "/video"},
		{"not multipart", plain.URL + "/video"},
		{"unreachable", closedURL + "/video"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOpener(time.Second, 0).OpenStream(context.Background(), tt.url)
			require.Error(t, err)
			assert.True(t, errors.Is(err, capture.ErrSourceUnreachable), "got %v", err)
		})
	}
}

func TestOpenStream_MidStreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=b")
		_, _ = fmt.Fprint(w, "--b\r\nContent-Type: image/jpeg\r\n\r\nxx\r\n--b\r\n")
	}))
	defer srv.Close()

	sink, err := NewOpenerWithClient(srv.Client(), 0).OpenStream(context.Background(), srv.URL+"/video")
	require.NoError(t, err)
	select {
	case <-sink.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Error(t, sink.Err())
	_ = sink.Close()
}
