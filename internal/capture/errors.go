// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"errors"

	"github.com/attendify/presence/internal/recognition"
)

var (
	ErrNotConnected      = errors.New("capture: network source not connected")
	ErrInvalidAddress    = errors.New("capture: invalid stream address")
	ErrAcquisitionDenied = errors.New("capture: device acquisition denied")
	ErrSourceUnreachable = errors.New("capture: source unreachable")
	ErrCaptureFailure    = errors.New("capture: frame capture failed")
	ErrDispatch          = errors.New("capture: dispatch failed")
	ErrClosed            = errors.New("capture: controller closed")
)

// User-facing messages.
const (
	MsgEnterAddress      = "Enter the IP Camera URL to connect."
	MsgConnectFirst      = "Enter the IP Camera URL and press Connect before starting."
	MsgDeviceDenied      = "Unable to access the built-in camera. Please check permissions."
	MsgStreamUnreachable = "Could not connect to IP Camera. Please check URL and Wi-Fi network."
	MsgCaptureFailure    = "Unable to capture frames from the current video stream."
	MsgDispatchFailure   = "Unable to send frame to the attendance service."
)

// errEmptyAddress is the InvalidAddress variant for blank input.
var errEmptyAddress = errors.New("capture: empty stream address")

// UserMessage maps an error to the text shown to the operator.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errEmptyAddress):
		return MsgEnterAddress
	case errors.Is(err, ErrNotConnected):
		return MsgConnectFirst
	case errors.Is(err, ErrAcquisitionDenied):
		return MsgDeviceDenied
	case errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrSourceUnreachable):
		return MsgStreamUnreachable
	case errors.Is(err, ErrCaptureFailure):
		return MsgCaptureFailure
	case errors.Is(err, ErrDispatch), errors.Is(err, recognition.ErrNetwork),
		recognition.IsServiceError(err), errors.Is(err, recognition.ErrMalformedResponse):
		return MsgDispatchFailure
	default:
		return err.Error()
	}
}

// ErrorCode is a stable machine-readable classification of err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrAcquisitionDenied):
		return "acquisition_denied"
	case errors.Is(err, ErrSourceUnreachable):
		return "source_unreachable"
	case errors.Is(err, ErrCaptureFailure):
		return "capture_failure"
	case errors.Is(err, recognition.ErrNetwork):
		return "dispatch_network"
	case recognition.IsServiceError(err), errors.Is(err, recognition.ErrMalformedResponse):
		return "dispatch_service"
	case errors.Is(err, ErrDispatch):
		return "dispatch_internal"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "internal"
	}
}
