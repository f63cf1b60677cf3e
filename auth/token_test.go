// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alchemist/server/shared/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer(testSecret, logger.New("auth-test"))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.Issue("user-123", "ada@example.com", "pro")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := issuer.Verify(token)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "pro", claims.Plan)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newTestIssuer()
	other := NewTokenIssuer("ffffffffffffffffffffffffffffffff", logger.New("auth-test"))

	token, err := other.Issue("user-123", "ada@example.com", "free")
	require.NoError(t, err)

	assert.Nil(t, issuer.Verify(token))
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := newTestIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	token, err := issuer.Issue("user-123", "ada@example.com", "free")
	require.NoError(t, err)

	// Verify with real time: the token expired a day ago
	issuer.now = time.Now
	assert.Nil(t, issuer.Verify(token))
}

func TestVerifyTamperedToken(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.Issue("user-123", "ada@example.com", "free")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	// Flip bytes in the payload
	payload := []byte(parts[1])
	payload[0] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	assert.Nil(t, issuer.Verify(tampered))
}

func TestVerifyGarbage(t *testing.T) {
	issuer := newTestIssuer()
	assert.Nil(t, issuer.Verify("not-a-token"))
	assert.Nil(t, issuer.Verify(""))
}
