// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package store owns the MongoDB connection and collection layout. The
// client is constructed once at process start and passed explicitly to every
// repository; there is no package-level singleton.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultConnectTimeout is the default connection timeout
	DefaultConnectTimeout = 10 * time.Second
	// DefaultServerSelectionTimeout bounds how long an operation waits for
	// a reachable server
	DefaultServerSelectionTimeout = 5 * time.Second
	// DefaultMaxPoolSize is the default maximum connection pool size
	DefaultMaxPoolSize = 100
	// DefaultMinPoolSize is the default minimum connection pool size
	DefaultMinPoolSize = 10
)

// Collection names. histories is the single canonical event store for query
// records; there is deliberately no fallback to legacy collection names.
const (
	CollectionUsers          = "users"
	CollectionHistories      = "histories"
	CollectionSharedSearches = "shared_searches"
	CollectionPayments       = "payments"
	CollectionRateLimits     = "rate_limits"
)

// Config configures the MongoDB connection.
type Config struct {
	URI                    string
	Database               string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	MaxPoolSize            uint64
	MinPoolSize            uint64
}

// Store wraps the MongoDB client and database handles.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes a pooled MongoDB connection and verifies it with a
// ping before returning.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database name is required")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ServerSelectionTimeout == 0 {
		cfg.ServerSelectionTimeout = DefaultServerSelectionTimeout
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = DefaultMaxPoolSize
	}
	if cfg.MinPoolSize == 0 {
		cfg.MinPoolSize = DefaultMinPoolSize
	}

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetAppName("alchemist-server")

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Users returns the users collection.
func (s *Store) Users() *mongo.Collection { return s.db.Collection(CollectionUsers) }

// Histories returns the canonical query event collection.
func (s *Store) Histories() *mongo.Collection { return s.db.Collection(CollectionHistories) }

// SharedSearches returns the shared searches collection.
func (s *Store) SharedSearches() *mongo.Collection {
	return s.db.Collection(CollectionSharedSearches)
}

// Payments returns the payments collection.
func (s *Store) Payments() *mongo.Collection { return s.db.Collection(CollectionPayments) }

// RateLimits returns the rate limit counter collection.
func (s *Store) RateLimits() *mongo.Collection { return s.db.Collection(CollectionRateLimits) }

// Ping verifies the connection is still healthy.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(pingCtx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. Safe to call
// on every startup; Mongo treats existing identical indexes as a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.Users(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		}},
		{s.Histories(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}},
		{s.SharedSearches(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "shareId", Value: 1}}, Options: unique},
		}},
		{s.Payments(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetSparse(true)},
		}},
		{s.RateLimits(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique},
		}},
	}

	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateMany(ctx, ix.models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}
