// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package share publishes read-only, link-addressable snapshots of one
// query/response pair with its impact metrics.
package share

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"alchemist/server/impact"
)

var (
	// ErrNotFound is returned when no snapshot exists for a share id
	ErrNotFound = errors.New("shared search not found")

	// ErrValidation is returned when a snapshot is missing a required field
	ErrValidation = errors.New("invalid share input")
)

// SharedSearch is a publicly retrievable snapshot. AccessCount grows by
// exactly one per successful resolve.
type SharedSearch struct {
	ID             uuid.UUID         `bson:"_id" json:"-"`
	ShareID        string            `bson:"shareId" json:"shareId"`
	Query          string            `bson:"query" json:"query"`
	Response       string            `bson:"response" json:"response"`
	Metrics        impact.Metrics    `bson:"metrics" json:"metrics"`
	TokenUsage     impact.TokenUsage `bson:"tokenUsage" json:"tokenUsage"`
	AccessCount    int64             `bson:"accessCount" json:"accessCount"`
	LastAccessedAt *time.Time        `bson:"lastAccessedAt,omitempty" json:"lastAccessedAt,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt" json:"createdAt"`
}
