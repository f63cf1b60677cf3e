// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines persistence for user accounts and the atomic
// operations the daily quota depends on.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// ResetDailyCounter zeroes searchesUsed iff the stored reset date falls
	// before startOfDay. Returns whether a reset happened.
	ResetDailyCounter(ctx context.Context, id uuid.UUID, startOfDay time.Time, now time.Time) (bool, error)

	// ConsumeSearch atomically increments searchesUsed iff the user is on an
	// unlimited plan or still under limit. Returns ErrQuotaExceeded when the
	// conditional update matches no document for an existing user.
	ConsumeSearch(ctx context.Context, id uuid.UUID, limit int) (*User, error)

	// SetPlan updates the plan tier and billing references.
	SetPlan(ctx context.Context, id uuid.UUID, plan Plan, customerID, subscriptionID string) error
}
