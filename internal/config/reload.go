// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/attendify/presence/internal/core/urlutil"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigHolder holds the live configuration and reloads it from file on demand,
// on SIGHUP (wired by the daemon) or when the file changes.
type ConfigHolder struct {
	mu      sync.RWMutex
	current AppConfig
	epoch   uint64

	loader  *Loader
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewConfigHolder creates a holder seeded with initial.
func NewConfigHolder(initial AppConfig, loader *Loader) *ConfigHolder {
	return &ConfigHolder{
		current: initial.Clone(),
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns a copy of the current configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Clone()
}

// Epoch increments on every successful swap.
func (h *ConfigHolder) Epoch() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.epoch
}

// Reload re-reads the file. On failure the previous configuration stays active.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}
	h.Swap(newCfg)
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// Swap installs cfg, logs the diff and notifies listeners.
func (h *ConfigHolder) Swap(cfg AppConfig) {
	h.mu.Lock()
	old := h.current
	h.current = cfg.Clone()
	h.epoch++
	h.mu.Unlock()

	h.logChanges(old, cfg)
	h.notifyListeners(cfg)
}

// StartWatcher watches the config file until ctx ends. No-op without a file.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so atomic renames (renameio, editors) are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().Str(xglog.FieldEvent, "config.watcher_started").Str(xglog.FieldPath, path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, watcher, filepath.Clean(path))
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().Str(xglog.FieldEvent, "config.file_changed").Str("op", event.Op.String()).
				Msg("config file changed")
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// RegisterListener registers ch for reload notifications. Sends never block.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *ConfigHolder) notifyListeners(cfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- cfg.Clone():
		default:
			h.logger.Warn().Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *ConfigHolder) logChanges(old, cfg AppConfig) {
	if old.Capture.SampleInterval != cfg.Capture.SampleInterval {
		h.logger.Info().Dur("old", old.Capture.SampleInterval).Dur("new", cfg.Capture.SampleInterval).
			Msg("config changed: capture.sample_interval")
	}
	if old.Geofence.CenterLat != cfg.Geofence.CenterLat || old.Geofence.CenterLng != cfg.Geofence.CenterLng ||
		old.Geofence.RadiusM != cfg.Geofence.RadiusM {
		h.logger.Info().
			Float64("center_lat", cfg.Geofence.CenterLat).
			Float64("center_lng", cfg.Geofence.CenterLng).
			Float64("radius_m", cfg.Geofence.RadiusM).
			Msg("config changed: geofence reference")
	}
	if old.Recognition.BaseURL != cfg.Recognition.BaseURL {
		h.logger.Info().
			Str("old", urlutil.SanitizeURL(old.Recognition.BaseURL)).
			Str("new", urlutil.SanitizeURL(cfg.Recognition.BaseURL)).
			Msg("config changed: recognition.base_url")
	}
	if old.Log.Level != cfg.Log.Level {
		h.logger.Info().Str("old", old.Log.Level).Str("new", cfg.Log.Level).Msg("config changed: log.level")
	}
}
