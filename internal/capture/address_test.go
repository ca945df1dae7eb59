// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStreamAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.168.1.5:8080", "http://192.168.1.5:8080/video"},
		{"  192.168.1.5:8080  ", "http://192.168.1.5:8080/video"},
		{"http://192.168.1.5:8080", "http://192.168.1.5:8080/video"},
		{"http://192.168.1.5:8080/", "http://192.168.1.5:8080/video"},
		{"http://192.168.1.5:8080/video", "http://192.168.1.5:8080/video"},
		{"http://192.168.1.5:8080/video/", "http://192.168.1.5:8080/video"},
		{"HTTPS://cam.example.com/VIDEO", "https://cam.example.com/VIDEO"},
		{"cam.local/stream", "http://cam.local/stream/video"},
		{"http://cam.local:8080/video?x=1#frag", "http://cam.local:8080/video"},
		{"http://user:pw@cam.local:8080", "http://user:pw@cam.local:8080/video"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeStreamAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStreamAddress_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "http://", "http://[::1"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeStreamAddress(in)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}

	_, err := NormalizeStreamAddress("")
	assert.Equal(t, MsgEnterAddress, UserMessage(err))
	_, err = NormalizeStreamAddress("http://")
	assert.Equal(t, MsgStreamUnreachable, UserMessage(err))
}
