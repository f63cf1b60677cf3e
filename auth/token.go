// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"alchemist/server/shared/logger"
)

const (
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 7 * 24 * time.Hour

	tokenIssuer   = "alchemist-ai"
	tokenAudience = "alchemist-ai-web"
)

// Claims are the identity claims embedded in a signed token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256-signed identity tokens.
type TokenIssuer struct {
	secret []byte
	log    *logger.Logger
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret. The
// secret length is validated at config load, not here.
func NewTokenIssuer(secret string, log *logger.Logger) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		log:    log,
		now:    time.Now,
	}
}

// Issue signs a token carrying the user's identity, expiring TokenTTL from now.
func (t *TokenIssuer) Issue(userID, email, plan string) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Plan:   plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, issuer, audience and expiry. It returns nil on
// any failure; callers treat a nil result as "not authenticated". The
// malformed-vs-other distinction is only logged.
func (t *TokenIssuer) Verify(tokenString string) *Claims {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			t.log.Debug("", "", "Rejected malformed or invalid token", map[string]interface{}{"error": err.Error()})
		} else {
			t.log.Warn("", "", "Token verification failed", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}
	return claims
}
