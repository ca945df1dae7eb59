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
	"github.com/attendify/presence/internal/geofence"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/recognition"
)

type checkInRequest struct {
	LectureID string `json:"lectureId"`
}

// Gate conditions reported in 409 responses.
const (
	gateOutsideZone  = "outside_zone"
	gateNoLocation   = "no_location"
	gateNotStreaming = "not_streaming"
	gateNotMatched   = "not_recognized"
)

var gateMessages = map[string]string{
	gateOutsideZone:  "You must be inside the lecture area to check in.",
	gateNoLocation:   "Waiting for a location fix.",
	gateNotStreaming: "Start the camera before checking in.",
	gateNotMatched:   "Your face has not been recognized yet.",
}

// checkInGate returns the first unmet precondition, or "" when check-in may proceed.
func checkInGate(geo geofence.Snapshot, sess capture.Snapshot) string {
	switch {
	case geo.Sample == nil:
		return gateNoLocation
	case geo.Status != geofence.StatusInside:
		return gateOutsideZone
	case sess.State != capture.StateStreaming.String():
		return gateNotStreaming
	case !sess.LatestMatched():
		return gateNotMatched
	}
	return ""
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, "checkin", err)
		return
	}
	req.LectureID = strings.TrimSpace(req.LectureID)
	if req.LectureID == "" {
		writeBadRequest(w, r, "checkin", errors.New("lectureId is required"))
		return
	}

	geo := s.deps.Geofence.Snapshot()
	sess := s.deps.Capture.Snapshot()
	if gate := checkInGate(geo, sess); gate != "" {
		problem.Write(w, r, http.StatusConflict, "checkin/"+gate, "Conflict", upperCode(gate), gateMessages[gate],
			map[string]any{
				"condition":      gate,
				"geofenceStatus": geo.Status.String(),
				"captureState":   sess.State,
			})
		return
	}

	resp, err := s.deps.CheckIn.CheckIn(r.Context(), recognition.CheckInRequest{
		LectureID: req.LectureID,
		GPS:       recognition.LatLng{Lat: geo.Sample.Latitude, Lng: geo.Sample.Longitude},
	})
	logger := xglog.WithContext(r.Context(), s.logger)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "checkin.failed").Str("lecture_id", req.LectureID).
			Msg("check-in submission failed")
		var se *recognition.ServiceError
		if errors.As(err, &se) {
			problem.Write(w, r, http.StatusBadGateway, "checkin/service_error", "Bad Gateway", "SERVICE_ERROR",
				se.Error(), map[string]any{"upstreamStatus": se.Status})
			return
		}
		writeUnavailable(w, r, "checkin", capture.MsgDispatchFailure)
		return
	}

	logger.Info().Str(xglog.FieldEvent, "checkin.submitted").Str("lecture_id", req.LectureID).Bool("ok", resp.OK).
		Msg("check-in submitted")
	writeJSON(w, http.StatusOK, resp)
}
