// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package geofence

import (
	"errors"
	"fmt"
)

// ErrLocationUnsupported is reported when no location provider is available.
var ErrLocationUnsupported = errors.New("geofence: location not supported")

// User-facing messages.
const (
	MsgUnsupported = "Geolocation is not supported by this browser"
	MsgUnavailable = "Unable to get location. Please enable location services."
)

// Reason is the location error subtype.
type Reason string

const (
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPositionUnavailable Reason = "position_unavailable"
	ReasonTimeout             Reason = "timeout"
	ReasonUnsupported         Reason = "unsupported"
)

// ParseReason accepts the reason names and the numeric platform codes 1-3.
func ParseReason(s string) (Reason, error) {
	switch s {
	case string(ReasonPermissionDenied), "1":
		return ReasonPermissionDenied, nil
	case string(ReasonPositionUnavailable), "2":
		return ReasonPositionUnavailable, nil
	case string(ReasonTimeout), "3":
		return ReasonTimeout, nil
	}
	return "", fmt.Errorf("unknown location error reason %q", s)
}

// LocationError is a failed position fix.
type LocationError struct {
	Reason Reason
	Detail string
}

func (e *LocationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("location error: %s", e.Reason)
	}
	return fmt.Sprintf("location error: %s: %s", e.Reason, e.Detail)
}

// ReasonOf extracts the reason from err, "" when err carries none.
func ReasonOf(err error) Reason {
	var le *LocationError
	if errors.As(err, &le) {
		return le.Reason
	}
	if errors.Is(err, ErrLocationUnsupported) {
		return ReasonUnsupported
	}
	return ""
}
