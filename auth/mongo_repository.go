// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements UserRepository on the users collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a user repository backed by the given collection.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// Create inserts a new user. The unique email index turns duplicate signups
// into ErrEmailTaken.
func (r *MongoRepository) Create(ctx context.Context, user *User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *MongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// ResetDailyCounter zeroes the counter in one conditional update so two
// requests racing across the day boundary reset at most once.
func (r *MongoRepository) ResetDailyCounter(ctx context.Context, id uuid.UUID, startOfDay, now time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "searchesResetDate": bson.M{"$lt": startOfDay}},
		bson.M{"$set": bson.M{"searchesUsed": 0, "searchesResetDate": now, "updatedAt": now}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to reset daily counter: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// ConsumeSearch increments the counter with a single find-and-modify so
// concurrent requests cannot both claim the last remaining search.
func (r *MongoRepository) ConsumeSearch(ctx context.Context, id uuid.UUID, limit int) (*User, error) {
	filter := bson.M{
		"_id": id,
		"$or": []bson.M{
			{"plan": PlanPro},
			{"searchesUsed": bson.M{"$lt": limit}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"searchesUsed": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to consume search: %w", err)
	}

	// The conditional update matched nothing: either the user is gone or
	// the quota is spent.
	if _, lookupErr := r.GetByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, ErrQuotaExceeded
}

// SetPlan updates plan tier and billing references.
func (r *MongoRepository) SetPlan(ctx context.Context, id uuid.UUID, plan Plan, customerID, subscriptionID string) error {
	set := bson.M{"plan": plan, "updatedAt": time.Now().UTC()}
	if customerID != "" {
		set["billingCustomerId"] = customerID
	}
	if subscriptionID != "" {
		set["billingSubscriptionId"] = subscriptionID
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
