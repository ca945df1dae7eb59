// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/attendify/presence/internal/api/problem"
	"github.com/attendify/presence/internal/capture"
	xglog "github.com/attendify/presence/internal/log"
)

type activeRequest struct {
	Active *bool `json:"active"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type connectRequest struct {
	Address string `json:"address"`
}

type connectResponse struct {
	StreamAddress string           `json:"streamAddress"`
	Capture       capture.Snapshot `json:"capture"`
}

func (s *Server) handleGetCapture(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Capture.Snapshot())
}

// handleSetCaptureActive answers 202: acquisition runs in the background
// and its outcome shows up in the snapshot and on the events stream.
func (s *Server) handleSetCaptureActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "capture", err)
		return
	}
	if req.Active == nil {
		writeBadRequest(w, r, "capture", errors.New("active is required"))
		return
	}

	if err := s.deps.Capture.SetActive(*req.Active); err != nil {
		writeCaptureError(w, r, err, s.deps.Capture.Snapshot())
		return
	}
	writeJSON(w, http.StatusAccepted, s.deps.Capture.Snapshot())
}

func (s *Server) handleSetCaptureMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "capture", err)
		return
	}
	mode, err := capture.ParseSourceMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if err != nil {
		writeBadRequest(w, r, "capture", err)
		return
	}
	s.deps.Capture.SetSourceMode(mode)
	writeJSON(w, http.StatusOK, s.deps.Capture.Snapshot())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "capture", err)
		return
	}

	addr, err := s.deps.Capture.ConnectNetworkSource(req.Address)
	if err != nil {
		writeCaptureError(w, r, err, s.deps.Capture.Snapshot())
		return
	}
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Debug().
		Str(xglog.FieldEvent, "api.capture_connect").
		Msg("network source connected via API")
	writeJSON(w, http.StatusAccepted, connectResponse{StreamAddress: addr, Capture: s.deps.Capture.Snapshot()})
}

func writeCaptureError(w http.ResponseWriter, r *http.Request, err error, snap capture.Snapshot) {
	status := http.StatusConflict
	title := "Conflict"
	switch {
	case errors.Is(err, capture.ErrInvalidAddress):
		status, title = http.StatusBadRequest, "Bad Request"
	case errors.Is(err, capture.ErrClosed):
		status, title = http.StatusServiceUnavailable, "Service Unavailable"
	}
	code := capture.ErrorCode(err)
	problem.Write(w, r, status, "capture/"+code, title, upperCode(code), capture.UserMessage(err), map[string]any{
		"state": snap.State,
		"mode":  snap.Mode,
	})
}
