// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository on the histories collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a history repository backed by the given collection.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// Insert stores one immutable query record.
func (r *MongoRepository) Insert(ctx context.Context, record *Record) error {
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// ListByUser returns a user's records, newest first.
func (r *MongoRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

// ListByUserBetween returns a user's records created in [from, to), oldest first.
func (r *MongoRepository) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	filter := bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, filter, opts)
}

// ListBetween returns all records created in [from, to).
func (r *MongoRepository) ListBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	filter := bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, filter, opts)
}

// RecentGlobal returns the newest records across all users.
func (r *MongoRepository) RecentGlobal(ctx context.Context, limit int) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

// DeleteByUser removes all of one user's records.
func (r *MongoRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Record, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}
	return records, nil
}
