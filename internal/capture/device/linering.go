// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"strings"
	"sync"
)

// LineRing keeps the last lines written to it. It is the stderr sink for the
// device reader so a failed start can report what ffmpeg said.
type LineRing struct {
	mu      sync.RWMutex
	lines   []string
	head    int
	size    int
	partial strings.Builder
}

// NewLineRing creates a LineRing holding capacity lines (50 when < 1).
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Write implements io.Writer. Text after the last newline is held until the
// line completes or Flush is called.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := string(p)
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			r.partial.WriteString(s)
			break
		}
		r.partial.WriteString(s[:i])
		r.pushLocked(r.partial.String())
		r.partial.Reset()
		s = s[i+1:]
	}
	return len(p), nil
}

// Flush commits a trailing unterminated line.
func (r *LineRing) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.partial.Len() > 0 {
		r.pushLocked(r.partial.String())
		r.partial.Reset()
	}
}

func (r *LineRing) pushLocked(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % r.size
}

// LastN returns up to n lines, oldest first.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]string, 0, r.size)
	for i := 0; i < r.size; i++ {
		if line := r.lines[(r.head+i)%r.size]; line != "" {
			ordered = append(ordered, line)
		}
	}
	if n <= 0 || len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

// Tail joins the last n lines with " | ".
func (r *LineRing) Tail(n int) string {
	return strings.Join(r.LastN(n), " | ")
}
