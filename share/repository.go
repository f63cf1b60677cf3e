// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package share

import "context"

// Repository defines persistence for shared search snapshots.
type Repository interface {
	Insert(ctx context.Context, s *SharedSearch) error

	// IncrementAccess resolves a snapshot in one atomic increment-and-return
	// operation so concurrent reads never lose counter updates. Returns
	// ErrNotFound when no snapshot has the id.
	IncrementAccess(ctx context.Context, shareID string) (*SharedSearch, error)
}
