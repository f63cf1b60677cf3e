// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	"github.com/google/uuid"

	"alchemist/server/auth"
)

// userNames adapts the user store to the history feed's name lookups.
type userNames struct {
	users auth.UserRepository
}

func (n userNames) DisplayName(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := n.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}
