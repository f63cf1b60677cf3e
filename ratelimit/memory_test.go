// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllowUpToMax(t *testing.T) {
	limiter := NewMemory(Config{Max: 3, Window: time.Minute})

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

func TestMemoryKeysAreIndependent(t *testing.T) {
	limiter := NewMemory(Config{Max: 1, Window: time.Minute})

	first, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	blocked, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := limiter.Allow(context.Background(), "auth:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestMemoryWindowExpiryResetsCount(t *testing.T) {
	limiter := NewMemory(Config{Max: 1, Window: time.Minute})
	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	first, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, current.Add(time.Minute), first.ResetAt)

	blocked, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	current = current.Add(time.Minute + time.Second)
	fresh, err := limiter.Allow(context.Background(), "auth:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed)
	assert.Equal(t, current.Add(time.Minute), fresh.ResetAt)
}

func TestMemoryExpiredWindowsArePurged(t *testing.T) {
	limiter := NewMemory(Config{Max: 1, Window: time.Minute})
	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	for _, key := range []string{"a", "b", "c"} {
		_, err := limiter.Allow(context.Background(), key)
		require.NoError(t, err)
	}

	current = current.Add(2 * time.Minute)
	_, err := limiter.Allow(context.Background(), "d")
	require.NoError(t, err)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.windows, 1)
}

func TestMemoryConcurrentCallersNeverExceedMax(t *testing.T) {
	const max = 10
	limiter := NewMemory(Config{Max: max, Window: time.Minute})

	var allowed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(50)
	for i := 0; i < 50; i++ {
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(context.Background(), "shared")
			assert.NoError(t, err)
			if decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(max), allowed)
}
