// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package billing integrates with the third-party subscription provider:
// thin pass-through calls for checkout/portal/cancel/plans, webhook intake
// that mutates payment records and user plan tiers, and the payment history.
package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Payment status lifecycle. Status only moves through the webhook flow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails HMAC
	// verification
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrValidation is returned when a request or event is missing a
	// required field
	ErrValidation = errors.New("invalid billing input")

	// ErrPaymentNotFound is returned when no payment matches an external
	// transaction id
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrUpstream is returned when the billing provider rejects or fails a
	// pass-through call
	ErrUpstream = errors.New("billing provider error")
)

// Payment is one transaction with the billing provider, owned by one user.
type Payment struct {
	ID          uuid.UUID `bson:"_id" json:"id"`
	UserID      uuid.UUID `bson:"userId" json:"userId"`
	AmountCents int64     `bson:"amountCents" json:"amountCents"`
	Currency    string    `bson:"currency" json:"currency"`
	Status      Status    `bson:"status" json:"status"`
	ExternalID  string    `bson:"externalId,omitempty" json:"externalId,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
