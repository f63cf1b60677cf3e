// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a subscription tier gating the daily query quota.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// User is an account record. SearchesUsed counts today's queries and resets
// the first time a request is observed on a different UTC calendar day than
// SearchesResetDate.
type User struct {
	ID                uuid.UUID `bson:"_id" json:"id"`
	Email             string    `bson:"email" json:"email"`
	Name              string    `bson:"name" json:"name"`
	PasswordHash      string    `bson:"passwordHash" json:"-"`
	Plan              Plan      `bson:"plan" json:"plan"`
	SearchesUsed      int       `bson:"searchesUsed" json:"searchesUsed"`
	SearchesResetDate time.Time `bson:"searchesResetDate" json:"searchesResetDate"`

	BillingCustomerID     string `bson:"billingCustomerId,omitempty" json:"-"`
	BillingSubscriptionID string `bson:"billingSubscriptionId,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DayString formats a time as its UTC calendar day, the unit of all daily
// resets and aggregations.
func DayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SameUTCDay reports whether two instants fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	return DayString(a) == DayString(b)
}

// EffectiveSearchesUsed applies the day-rollover reset as a view: a counter
// from a previous UTC day reads as zero without being persisted.
func (u *User) EffectiveSearchesUsed(now time.Time) int {
	if !SameUTCDay(u.SearchesResetDate, now) {
		return 0
	}
	return u.SearchesUsed
}
