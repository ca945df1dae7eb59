// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recognition

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork wraps transport failures (dial, TLS, timeout, cancellation).
	ErrNetwork = errors.New("recognition: network error")

	// ErrMalformedResponse is returned when a 2xx body is not a JSON object.
	ErrMalformedResponse = errors.New("recognition: malformed response")
)

// ServiceError is a non-2xx answer from the attendance service.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("Request failed with %d: %s", e.Status, e.Body)
}

// IsServiceError reports whether err carries a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
