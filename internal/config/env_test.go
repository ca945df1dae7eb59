// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("PRESENCE_TEST_STR", "value")
	t.Setenv("PRESENCE_TEST_EMPTY", "")
	t.Setenv("PRESENCE_TEST_INT", "42")
	t.Setenv("PRESENCE_TEST_BADINT", "forty")
	t.Setenv("PRESENCE_TEST_FLOAT", "-74.006")
	t.Setenv("PRESENCE_TEST_DUR", "250ms")
	t.Setenv("PRESENCE_TEST_BOOL", "Yes")
	t.Setenv("PRESENCE_TEST_BADBOOL", "maybe")

	assert.Equal(t, "value", ParseString("PRESENCE_TEST_STR", "def"))
	assert.Equal(t, "def", ParseString("PRESENCE_TEST_EMPTY", "def"))
	assert.Equal(t, "def", ParseString("PRESENCE_TEST_UNSET", "def"))
	assert.Equal(t, 42, ParseInt("PRESENCE_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("PRESENCE_TEST_BADINT", 1))
	assert.InDelta(t, -74.006, ParseFloat("PRESENCE_TEST_FLOAT", 0), 1e-9)
	assert.Equal(t, 250*time.Millisecond, ParseDuration("PRESENCE_TEST_DUR", time.Second))
	assert.True(t, ParseBool("PRESENCE_TEST_BOOL", false))
	assert.True(t, ParseBool("PRESENCE_TEST_BADBOOL", true))
}
