// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides fixed-window request limiting keyed by an
// arbitrary string, with in-memory, MongoDB and Redis backends sharing one
// allow/deny contract.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the limiter's backing store cannot be
// reached. Callers protecting sensitive endpoints should fail closed.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Config bounds a fixed window: at most Max requests per Window.
type Config struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter answers whether one more request under key fits in the current
// window. Implementations must count atomically so concurrent callers never
// slip past the limit together.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, max int, resetAt time.Time) Decision {
	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(max),
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
