// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRequiresURIAndDatabase(t *testing.T) {
	_, err := Connect(context.Background(), Config{Database: "alchemist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URI is required")

	_, err = Connect(context.Background(), Config{URI: "mongodb://localhost:27017"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name is required")
}

func TestCollectionNames(t *testing.T) {
	assert.Equal(t, "users", CollectionUsers)
	assert.Equal(t, "histories", CollectionHistories)
	assert.Equal(t, "shared_searches", CollectionSharedSearches)
	assert.Equal(t, "payments", CollectionPayments)
	assert.Equal(t, "rate_limits", CollectionRateLimits)
}
