// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/attendify/presence/internal/api/problem"
)

const maxBodyBytes = 1 << 16

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single bounded JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, area string, err error) {
	problem.Write(w, r, http.StatusBadRequest, area+"/invalid_request", "Bad Request", "INVALID_REQUEST", err.Error(), nil)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, area, detail string) {
	problem.Write(w, r, http.StatusNotFound, area+"/not_found", "Not Found", "NOT_FOUND", detail, nil)
}

func writeUnavailable(w http.ResponseWriter, r *http.Request, area, detail string) {
	problem.Write(w, r, http.StatusServiceUnavailable, area+"/unavailable", "Service Unavailable", "UNAVAILABLE", detail, nil)
}

// upperCode turns an error code like "not_connected" into "NOT_CONNECTED".
func upperCode(code string) string {
	return strings.ToUpper(code)
}
