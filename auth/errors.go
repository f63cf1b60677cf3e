// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import "errors"

var (
	// ErrEmailTaken is returned when signup uses an already-registered email
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for a bad email/password pair
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned when a request carries no valid token
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrUserNotFound is returned when a structurally valid token references
	// a user that no longer exists
	ErrUserNotFound = errors.New("user not found")

	// ErrQuotaExceeded is returned when a free-plan user is out of daily searches
	ErrQuotaExceeded = errors.New("daily search quota exceeded")

	// ErrValidation is returned for missing or malformed signup/signin input
	ErrValidation = errors.New("invalid input")
)
