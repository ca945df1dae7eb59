// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_AccumulatesErrors(t *testing.T) {
	v := New()
	v.Range("capture.jpeg_quality", 120, 1, 100)
	v.PositiveDuration("capture.sample_interval", 0)
	v.OneOf("zones.backend", "mongo", []string{"memory", "sqlite"})

	require.False(t, v.IsValid())
	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 3)
	assert.Contains(t, err.Error(), "capture.jpeg_quality")
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_NoErrors(t *testing.T) {
	v := New()
	v.Range("n", 5, 1, 10)
	v.Latitude("lat", 40.7128)
	v.Longitude("lng", -74.006)
	v.ListenAddr("listen", ":8088")
	v.URL("base", "http://localhost:5000/api", []string{"http", "https"})
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"http", "http://10.0.0.2:5000/api", true},
		{"https", "https://attendance.example.edu/api", true},
		{"empty", "", false},
		{"no host", "http:///api", false},
		{"bad scheme", "ftp://host/api", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("recognition.base_url", tt.value, []string{"http", "https"})
			assert.Equal(t, tt.ok, v.IsValid())
		})
	}
}

func TestValidator_FloatRangeRejectsNaN(t *testing.T) {
	v := New()
	v.FloatRange("radius", math.NaN(), 0, 10)
	v.Latitude("lat", 91)
	v.Longitude("lng", -181)
	assert.Len(t, v.Errors(), 3)
}

func TestValidator_ListenAddr(t *testing.T) {
	v := New()
	v.ListenAddr("a", "localhost")
	v.ListenAddr("b", "127.0.0.1:")
	assert.Len(t, v.Errors(), 2)
}

func TestValidator_PositiveDuration(t *testing.T) {
	v := New()
	v.PositiveDuration("d", time.Second)
	assert.True(t, v.IsValid())
	v.PositiveDuration("d", -time.Second)
	assert.False(t, v.IsValid())
}

func TestLogLevel(t *testing.T) {
	assert.True(t, LogLevel("debug").IsValid())
	assert.False(t, LogLevel("trace").IsValid())
	assert.Len(t, LogLevels(), 4)
}
