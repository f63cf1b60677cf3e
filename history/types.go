// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package history owns the canonical query event store and the on-demand
// usage aggregations computed over it. Records are immutable once created
// and only ever deleted in bulk by an explicit per-user clear.
package history

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"alchemist/server/impact"
)

var (
	// ErrValidation is returned when a record is missing a required field
	ErrValidation = errors.New("invalid history input")

	// ErrNotFound is returned when a referenced record is absent
	ErrNotFound = errors.New("history record not found")
)

// Record is one submitted query with its response and impact estimates.
type Record struct {
	ID         uuid.UUID         `bson:"_id" json:"id"`
	UserID     uuid.UUID         `bson:"userId" json:"userId"`
	Query      string            `bson:"query" json:"query"`
	Response   string            `bson:"response" json:"response"`
	Metrics    impact.Metrics    `bson:"metrics" json:"metrics"`
	TokenUsage impact.TokenUsage `bson:"tokenUsage" json:"tokenUsage"`
	CreatedAt  time.Time         `bson:"createdAt" json:"createdAt"`
}

// DayTotals pairs a UTC calendar day with the totals for that day.
type DayTotals struct {
	Date   string        `json:"date"`
	Totals impact.Totals `json:"totals"`
}

// GlobalDaily is the cross-user rollup for the current UTC day. Note is set
// only when the water figure was built from the per-query fallback constant
// instead of recorded data.
type GlobalDaily struct {
	TotalPrompts    int     `json:"totalPrompts"`
	TotalWaterUsage float64 `json:"totalWaterUsage"`
	Note            string  `json:"note,omitempty"`
}

// RecentActivity is one row of the public activity feed. UserName carries
// only the first name for privacy.
type RecentActivity struct {
	UserName  string         `json:"userName"`
	Query     string         `json:"query"`
	Metrics   impact.Metrics `json:"metrics"`
	CreatedAt time.Time      `json:"createdAt"`
}
