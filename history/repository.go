// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for query history records. There is one
// canonical event collection; no legacy-collection fallbacks.
type Repository interface {
	Insert(ctx context.Context, record *Record) error

	// ListByUser returns a user's records, newest first, capped at limit.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error)

	// ListByUserBetween returns a user's records created in [from, to),
	// oldest first.
	ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error)

	// ListBetween returns all users' records created in [from, to).
	ListBetween(ctx context.Context, from, to time.Time) ([]Record, error)

	// RecentGlobal returns the newest records across all users.
	RecentGlobal(ctx context.Context, limit int) ([]Record, error)

	// DeleteByUser removes all of one user's records and reports how many.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NameResolver maps a user id to a display name for the activity feed.
type NameResolver interface {
	DisplayName(ctx context.Context, id uuid.UUID) (string, error)
}
