// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/attendify/presence/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, version.Version))
}

func TestStreamURLCommand(t *testing.T) {
	out, _, err := execute(t, "stream-url", "192.168.1.20:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20:8080/video\n", out)
}

func TestStreamURLCommand_InvalidExitsTwo(t *testing.T) {
	assert.Equal(t, 2, run([]string{"stream-url", "   "}))
}

func TestDistanceCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "center is inside",
			args: []string{"distance", "10", "20", "--center-lat", "10", "--center-lng", "20", "--radius", "100"},
			want: "0.0 m inside",
		},
		{
			name: "far point is outside",
			args: []string{"distance", "10.01", "20", "--center-lat", "10", "--center-lng", "20", "--radius", "100"},
			want: "outside",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestDistanceCommand_RejectsBadInput(t *testing.T) {
	_, _, err := execute(t, "distance", "95", "0")
	assert.Error(t, err)

	_, _, err = execute(t, "distance", "1", "2", "--radius", "0")
	assert.Error(t, err)

	assert.Equal(t, 1, run([]string{"distance", "abc", "0"}))
}
