// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"alchemist/server/shared/logger"
)

const minPasswordLen = 8

// Service handles account lifecycle, credentials and the daily search quota.
type Service struct {
	users     UserRepository
	tokens    *TokenIssuer
	log       *logger.Logger
	freeLimit int
	now       func() time.Time
}

// NewService creates an auth service. freeLimit is the free-plan daily
// search quota.
func NewService(users UserRepository, tokens *TokenIssuer, log *logger.Logger, freeLimit int) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		log:       log,
		freeLimit: freeLimit,
		now:       time.Now,
	}
}

// Tokens exposes the token issuer for transport-level helpers.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Signup registers a new account and returns the user with a signed token.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, "", fmt.Errorf("%w: a valid email is required", ErrValidation)
	case len(password) < minPasswordLen:
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	case name == "":
		return nil, "", fmt.Errorf("%w: name is required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:                uuid.New(),
		Email:             email,
		Name:              name,
		PasswordHash:      string(hash),
		Plan:              PlanFree,
		SearchesUsed:      0,
		SearchesResetDate: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Email, string(user.Plan))
	if err != nil {
		return nil, "", err
	}

	s.log.Info(user.ID.String(), "", "User signed up", map[string]interface{}{"email": user.Email})
	return user, token, nil
}

// Signin checks credentials and returns the user with a fresh token.
func (s *Service) Signin(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Bad email and bad password are indistinguishable to the caller
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Email, string(user.Plan))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a raw token to a live user record. A verifiable
// token for a deleted user yields ErrUserNotFound, distinct from
// ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*User, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	claims := s.tokens.Verify(tokenString)
	if claims == nil {
		return nil, ErrUnauthenticated
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return s.users.GetByID(ctx, id)
}

// ConsumeSearch enforces the daily quota for one query: reset the counter if
// the stored reset date belongs to an earlier UTC day, then atomically claim
// one search. Pro users are unlimited.
func (s *Service) ConsumeSearch(ctx context.Context, userID uuid.UUID) (*User, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if _, err := s.users.ResetDailyCounter(ctx, userID, startOfDay, now); err != nil {
		return nil, err
	}

	user, err := s.users.ConsumeSearch(ctx, userID, s.freeLimit)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.log.Info(userID.String(), "", "Daily search quota exceeded", map[string]interface{}{"limit": s.freeLimit})
		}
		return nil, err
	}
	return user, nil
}
