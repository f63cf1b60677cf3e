// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// Memory is a process-local fixed-window limiter. It is the fallback when
// neither Redis nor MongoDB is configured, and the workhorse for tests.
type Memory struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemory creates an in-memory limiter.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow counts one request against key's current window. Expired windows are
// replaced lazily on the next hit rather than by a background sweeper.
func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !w.resetAt.After(now) {
		w = &window{count: 0, resetAt: now.Add(m.cfg.Window)}
		m.windows[key] = w
		m.purgeLocked(now)
	}
	w.count++
	return decide(w.count, m.cfg.Max, w.resetAt), nil
}

// purgeLocked drops expired windows so idle keys do not accumulate.
// Caller holds m.mu.
func (m *Memory) purgeLocked(now time.Time) {
	for key, w := range m.windows {
		if !w.resetAt.After(now) {
			delete(m.windows, key)
		}
	}
}
