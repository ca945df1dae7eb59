// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zones

import (
	"context"
	"fmt"

	"github.com/attendify/presence/internal/config"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.ZonesConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendSQLite:
		return NewSqliteStore(ctx, cfg.Path)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr)
	case config.BackendBadger:
		return OpenBadgerStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown zone store backend: %s", cfg.Backend)
	}
}
