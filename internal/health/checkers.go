// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"os"

	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/geofence"
)

// Pinger is anything with a connectivity check, such as a zone store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports Unhealthy when Ping fails.
type PingChecker struct {
	name string
	p    Pinger
}

func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, p: p}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.p.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// CaptureChecker reports the capture session. A session in Error, or one
// that stopped with an error, is degraded: the daemon can still serve.
type CaptureChecker struct {
	snapshot func() capture.Snapshot
}

func NewCaptureChecker(c *capture.Controller) *CaptureChecker {
	return &CaptureChecker{snapshot: c.Snapshot}
}

func (c *CaptureChecker) Name() string { return "capture" }

func (c *CaptureChecker) Check(context.Context) CheckResult {
	s := c.snapshot()
	res := CheckResult{Status: StatusHealthy, Message: s.State + "/" + s.Mode}
	if s.State == capture.StateError.String() || s.LastError != "" {
		res.Status = StatusDegraded
		res.Error = s.LastError
	}
	return res
}

// GeofenceChecker reports the location watch.
type GeofenceChecker struct {
	snapshot func() geofence.Snapshot
}

func NewGeofenceChecker(m *geofence.Monitor) *GeofenceChecker {
	return &GeofenceChecker{snapshot: m.Snapshot}
}

func (c *GeofenceChecker) Name() string { return "geofence" }

func (c *GeofenceChecker) Check(context.Context) CheckResult {
	s := c.snapshot()
	res := CheckResult{Status: StatusHealthy, Message: s.Status.String()}
	if s.Status == geofence.StatusError {
		res.Status = StatusDegraded
		res.Error = s.Error
	}
	return res
}

// FileChecker checks that a file exists and is readable. An empty path is
// reported healthy as not configured.
type FileChecker struct {
	name string
	path string
}

func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	if info.Size() == 0 {
		return CheckResult{Status: StatusDegraded, Message: "file is empty"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}
