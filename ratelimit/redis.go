// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ratelimit:"

// Redis is a fixed-window limiter backed by INCR with a window-length TTL.
// Preferred over the Mongo limiter when a Redis URL is configured, since the
// hot path is one round trip with no index contention.
type Redis struct {
	cfg    Config
	client *redis.Client
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter from a redis:// URL.
func NewRedis(cfg Config, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisWithClient(cfg, client), nil
}

// NewRedisWithClient wraps an existing client. Tests use this with miniredis.
func NewRedisWithClient(cfg Config, client *redis.Client) *Redis {
	return &Redis{cfg: cfg, client: client, now: time.Now}
}

// Allow counts one request against key's current window. The first hit in a
// window creates the counter and stamps its expiry; Redis handles expired
// windows by deleting the key, so a fresh INCR restarts the count at one.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := redisKeyPrefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.cfg.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	ttl, err := r.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		// Counter lost its expiry (e.g. a crash between INCR and EXPIRE on
		// the first hit). Re-arm it so the window cannot live forever.
		ttl = r.cfg.Window
		if err := r.client.Expire(ctx, redisKey, ttl).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return decide(count, r.cfg.Max, r.now().Add(ttl)), nil
}

// Close releases the underlying client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
