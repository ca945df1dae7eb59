// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr string

	ReadTimeout time.Duration
	// WriteTimeout stays zero by default: the events websocket is long-lived.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the listener defaults for addr.
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     10 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the API server
	APIHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
