// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/attendify/presence/internal/config"
	"github.com/attendify/presence/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the server starts.
// A missing ffmpeg only warns: network cameras still work without it.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListen(logger, cfg.API.Listen); err != nil {
		return err
	}
	if err := checkRecognitionURL(logger, cfg.Recognition.BaseURL); err != nil {
		return err
	}
	if err := checkZoneStorage(logger, cfg.Zones); err != nil {
		return fmt.Errorf("zone storage check failed: %w", err)
	}
	checkFFmpeg(logger, cfg.Capture.Local.FFmpegBin)

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListen(logger zerolog.Logger, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid API listen address %q: %w", addr, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid API listen port %q in %q", port, addr)
	}
	logger.Info().Str("addr", addr).Msg("API listen address is valid")
	return nil
}

func checkRecognitionURL(logger zerolog.Logger, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid recognition base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("recognition base URL scheme must be http or https, got: %s", u.Scheme)
	}
	logger.Info().Str(log.FieldBaseURL, raw).Msg("recognition base URL is valid")
	return nil
}

// checkZoneStorage makes sure file-backed stores can write next to their path.
func checkZoneStorage(logger zerolog.Logger, zc config.ZonesConfig) error {
	var dir string
	switch zc.Backend {
	case config.BackendSQLite:
		dir = filepath.Dir(zc.Path)
	case config.BackendBadger:
		if zc.Path == "" {
			logger.Warn().Msg("badger zone store without path runs in memory; zones are lost on restart")
			return nil
		}
		dir = zc.Path
	case config.BackendMemory, "":
		logger.Warn().Msg("zone registry uses the in-memory store; zones are lost on restart")
		return nil
	default:
		return nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", dir, err)
	}
	_ = os.Remove(probe)
	logger.Info().Str(log.FieldPath, dir).Msg("zone storage directory is writable")
	return nil
}

func checkFFmpeg(logger zerolog.Logger, bin string) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		logger.Warn().Err(err).Str("ffmpeg", bin).Msg("ffmpeg not found; local camera capture will fail")
		return
	}
	logger.Info().Str("ffmpeg", bin).Msg("ffmpeg available")
}
