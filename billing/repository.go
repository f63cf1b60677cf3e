// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists payment records.
type Repository interface {
	// Insert stores a new payment.
	Insert(ctx context.Context, payment *Payment) error

	// ListByUser returns a user's payments, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error)

	// UpdateStatusByExternalID moves the payment matching the provider's
	// transaction id to the given status. ErrPaymentNotFound when no payment
	// carries that id.
	UpdateStatusByExternalID(ctx context.Context, externalID string, status Status) error
}
