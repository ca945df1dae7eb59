// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package recognition submits sampled frames to the attendance service and
// normalizes its answers.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/attendify/presence/internal/core/urlutil"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/metrics"
	"github.com/attendify/presence/internal/platform/httpx"
	"github.com/attendify/presence/internal/telemetry"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is used when no base is configured.
const DefaultBaseURL = "http://localhost:5000/api"

const maxBodyBytes = 1 << 20

// Source tags where a frame came from.
type Source string

const (
	SourceWebcam   Source = "webcam"
	SourceIPWebcam Source = "ip-webcam"
)

// Submission is one captured frame plus context.
type Submission struct {
	Image   string
	Source  Source
	ClassID *float64
}

// MarshalJSON emits classId only when finite.
func (s Submission) MarshalJSON() ([]byte, error) {
	payload := map[string]any{
		"image":  s.Image,
		"source": string(s.Source),
	}
	if s.ClassID != nil && !math.IsNaN(*s.ClassID) && !math.IsInf(*s.ClassID, 0) {
		payload["classId"] = *s.ClassID
	}
	return json.Marshal(payload)
}

// Client talks to the attendance service. It never retries.
type Client struct {
	base   string
	http   *http.Client
	logger zerolog.Logger
}

// NewClient builds a client for baseURL with an instrumented hardened transport.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, httpx.Instrument(httpx.NewClient(timeout), "recognition"))
}

// NewClientWithHTTP is NewClient with a caller-supplied HTTP client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   hc,
		logger: xglog.WithComponent("recognition"),
	}
}

// BaseURL returns the normalized base.
func (c *Client) BaseURL() string { return c.base }

// ResolveURL joins base and path without duplicating an "/api" segment.
// Absolute http(s) paths are returned unchanged.
func ResolveURL(base, path string) string {
	if urlutil.HasHTTPScheme(path) {
		return path
	}
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBaseURL
	}
	trimmed := strings.TrimRight(base, "/")
	rel := path
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}

	if strings.HasSuffix(trimmed, "/api") {
		if strings.HasPrefix(rel, "/api/") {
			return trimmed + rel[len("/api"):]
		}
		if rel == "/api" {
			return trimmed
		}
	}
	return trimmed + rel
}

// Submit posts one frame to /attendance/mark.
func (c *Client) Submit(ctx context.Context, s Submission) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "recognition.submit",
		telemetry.SubmissionAttributes(string(s.Source), 0, s.ClassID)...)
	start := time.Now()

	var out Result
	body, err := c.postJSON(ctx, "/attendance/mark", s)
	if err == nil {
		out, err = ParseResult(body)
	}

	outcome := outcomeOf(err, out.Matched)
	metrics.ObserveRecognition(string(s.Source), outcome, time.Since(start))
	if err == nil {
		span.SetAttributes(telemetry.RecognitionAttributes(out.Matched, out.Confidence())...)
	}
	telemetry.EndSpan(span, err, outcome)

	logger := xglog.WithContext(ctx, c.logger)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "recognition.failed").Str("outcome", outcome).
			Msg("frame submission failed")
		return Result{}, err
	}
	logger.Debug().
		Str(xglog.FieldEvent, "recognition.completed").
		Bool(xglog.FieldMatched, out.Matched).
		Float64(xglog.FieldScore, out.Confidence()).
		Dur("latency", time.Since(start)).
		Msg("frame recognized")
	return out, nil
}

// CheckInRequest asks the service to record attendance for a lecture at a position.
type CheckInRequest struct {
	LectureID string `json:"lectureId"`
	GPS       LatLng `json:"gps"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type CheckInResponse struct {
	OK bool `json:"ok"`
}

// CheckIn posts to /attendance/checkin.
func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) (CheckInResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "recognition.checkin")
	body, err := c.postJSON(ctx, "/attendance/checkin", req)
	var out CheckInResponse
	if err == nil {
		if jerr := json.Unmarshal(body, &out); jerr != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedResponse, jerr)
		}
	}
	telemetry.EndSpan(span, err, "checkin")
	switch {
	case err != nil:
		metrics.IncCheckIn("error")
	case out.OK:
		metrics.IncCheckIn("ok")
	default:
		metrics.IncCheckIn("rejected")
	}
	return out, err
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ResolveURL(c.base, path), bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := xglog.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func outcomeOf(err error, matched bool) string {
	switch {
	case err == nil && matched:
		return "matched"
	case err == nil:
		return "unmatched"
	case IsServiceError(err):
		return "service_error"
	case errors.Is(err, ErrMalformedResponse):
		return "decode_error"
	default:
		return "network_error"
	}
}
