// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recognition

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Result is the normalized answer to one frame submission.
type Result struct {
	Matched            bool      `json:"matched"`
	StudentID          *int      `json:"studentId"`
	Username           *string   `json:"username,omitempty"`
	Name               *string   `json:"name,omitempty"`
	RecognizedName     *string   `json:"recognizedName,omitempty"`
	Distance           *float64  `json:"distance"`
	Score              *float64  `json:"score"`
	Threshold          float64   `json:"threshold"`
	CreatedAt          time.Time `json:"createdAt"`
	Source             string    `json:"source,omitempty"`
	ClassID            *float64  `json:"classId,omitempty"`
	AttendanceRecorded *bool     `json:"attendanceRecorded,omitempty"`
}

// DetectedIdentity is the per-frame face summary handed to observers.
type DetectedIdentity struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Label is the display name for the result.
func (r Result) Label() string {
	if !r.Matched {
		return "Unknown"
	}
	for _, s := range []*string{r.RecognizedName, r.Name, r.Username} {
		if s != nil && *s != "" {
			return *s
		}
	}
	if r.StudentID != nil && *r.StudentID != 0 {
		return fmt.Sprintf("ID %d", *r.StudentID)
	}
	return "Unknown"
}

// Confidence is the clamped score, 0 when absent.
func (r Result) Confidence() float64 {
	if r.Score == nil {
		return 0
	}
	return Clamp01(*r.Score)
}

// Identity derives the observer payload. newID supplies a token when the
// result carries no usable identifier; zero CreatedAt falls back to now.
func (r Result) Identity(now time.Time, newID func() string) DetectedIdentity {
	id := ""
	if r.StudentID != nil {
		id = strconv.Itoa(*r.StudentID)
	} else {
		id = firstNonEmpty(r.Username, r.RecognizedName, r.Name)
	}
	if id == "" {
		id = newID()
	}

	name := firstNonEmpty(r.RecognizedName, r.Name, r.Username)
	if name == "" {
		name = "Unknown"
	}

	ts := r.CreatedAt
	if ts.IsZero() {
		ts = now
	}
	return DetectedIdentity{ID: id, Name: name, Confidence: r.Confidence(), Timestamp: ts}
}

func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// ParseResult decodes a service response, accepting camelCase or snake_case keys.
func ParseResult(data []byte) (Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	f := fields(raw)

	var r Result
	r.Matched, _ = f.bool("matched", "is_match", "match")
	if v, ok := f.number("studentId", "student_id"); ok && v == math.Trunc(v) {
		id := int(v)
		r.StudentID = &id
	}
	r.Username = f.str("username", "user_name")
	r.Name = f.str("name")
	r.RecognizedName = f.str("recognizedName", "recognized_name")
	if v, ok := f.number("distance"); ok {
		r.Distance = &v
	}
	if v, ok := f.number("score", "confidence"); ok {
		c := Clamp01(v)
		r.Score = &c
	}
	r.Threshold, _ = f.number("threshold")
	if s := f.str("createdAt", "created_at"); s != nil {
		r.CreatedAt = parseTimestamp(*s)
	}
	if s := f.str("source"); s != nil {
		r.Source = *s
	}
	if v, ok := f.number("classId", "class_id"); ok {
		r.ClassID = &v
	}
	if b, ok := f.bool("attendanceRecorded", "attendance_recorded"); ok {
		r.AttendanceRecorded = &b
	}
	return r, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type fields map[string]json.RawMessage

func (f fields) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func (f fields) str(keys ...string) *string {
	raw, ok := f.lookup(keys...)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// number accepts JSON numbers and numeric strings. Non-finite values are absent.
func (f fields) number(keys ...string) (float64, bool) {
	raw, ok := f.lookup(keys...)
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
		if v, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (f fields) bool(keys ...string) (bool, bool) {
	raw, ok := f.lookup(keys...)
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}
