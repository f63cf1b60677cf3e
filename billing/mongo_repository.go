// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository on the payments collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a payment repository backed by the given collection.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// Insert stores a new payment.
func (r *MongoRepository) Insert(ctx context.Context, payment *Payment) error {
	if _, err := r.coll.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ListByUser returns a user's payments, newest first.
func (r *MongoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

// UpdateStatusByExternalID moves a payment to the given status.
func (r *MongoRepository) UpdateStatusByExternalID(ctx context.Context, externalID string, status Status) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"externalId": externalID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
