// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository on the shared_searches collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a share repository backed by the given collection.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// Insert stores a new snapshot.
func (r *MongoRepository) Insert(ctx context.Context, s *SharedSearch) error {
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert shared search: %w", err)
	}
	return nil
}

// IncrementAccess bumps the counter and access time with a single
// find-and-modify, returning the post-increment document.
func (r *MongoRepository) IncrementAccess(ctx context.Context, shareID string) (*SharedSearch, error) {
	update := bson.M{
		"$inc": bson.M{"accessCount": 1},
		"$set": bson.M{"lastAccessedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s SharedSearch
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"shareId": shareID}, update, opts).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve shared search: %w", err)
	}
	return &s, nil
}
