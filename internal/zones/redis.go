// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zones

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKey is the hash holding zone id -> JSON.
const redisKey = "presence:zones"

// RedisStore keeps zones in one Redis hash.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies it with PING.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Zone, error) {
	vals, err := s.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Zone, 0, len(vals))
	for id, raw := range vals {
		var z Zone
		if err := json.Unmarshal([]byte(raw), &z); err != nil {
			return nil, fmt.Errorf("zone %s: %w", id, err)
		}
		out = append(out, z)
	}
	sortZones(out)
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Zone, error) {
	raw, err := s.client.HGet(ctx, redisKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Zone{}, ErrNotFound
	}
	if err != nil {
		return Zone{}, err
	}
	var z Zone
	if err := json.Unmarshal(raw, &z); err != nil {
		return Zone{}, fmt.Errorf("zone %s: %w", id, err)
	}
	return z, nil
}

func (s *RedisStore) Put(ctx context.Context, z Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	buf, err := json.Marshal(z)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, redisKey, z.ID, buf).Err()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, redisKey, id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }
func (s *RedisStore) Close() error                   { return s.client.Close() }
