// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisLimiter(t *testing.T, cfg Config) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisWithClient(cfg, client), mr
}

func TestRedisAllowUpToMax(t *testing.T) {
	limiter, _ := redisLimiter(t, Config{Max: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 2-i, decision.Remaining)
	}

	decision, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
}

func TestRedisWindowExpiryResetsCount(t *testing.T) {
	limiter, mr := redisLimiter(t, Config{Max: 1, Window: time.Minute})

	first, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	blocked, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	mr.FastForward(time.Minute + time.Second)

	fresh, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed)
}

func TestRedisKeysAreIndependent(t *testing.T) {
	limiter, _ := redisLimiter(t, Config{Max: 1, Window: time.Minute})

	first, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	other, err := limiter.Allow(context.Background(), "auth:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRedisBackendOutageReturnsUnavailable(t *testing.T) {
	limiter, mr := redisLimiter(t, Config{Max: 1, Window: time.Minute})
	mr.Close()

	_, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(Config{Max: 1, Window: time.Minute}, "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
