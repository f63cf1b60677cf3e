// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type windowDoc struct {
	Key     string    `bson:"key"`
	Count   int64     `bson:"count"`
	ResetAt time.Time `bson:"resetAt"`
}

// Mongo is a fixed-window limiter shared across server instances through a
// single collection. Every Allow performs its count as one atomic
// find-and-modify $inc, including the first hit of a fresh window, so two
// concurrent callers can never both observe the pre-increment count or
// collapse into a single counted request at the window boundary.
type Mongo struct {
	cfg  Config
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongo creates a Mongo-backed limiter. The collection needs a unique
// index on key.
func NewMongo(cfg Config, coll *mongo.Collection) *Mongo {
	return &Mongo{cfg: cfg, coll: coll, now: time.Now}
}

// liveWindowFilter matches the key's window only while it is still open.
func liveWindowFilter(key string, now time.Time) bson.M {
	return bson.M{"key": key, "resetAt": bson.M{"$gt": now}}
}

// expiredWindowFilter matches the key's window once it has lapsed.
func expiredWindowFilter(key string, now time.Time) bson.M {
	return bson.M{"key": key, "resetAt": bson.M{"$lte": now}}
}

// countUpdate is the one counting operation both paths share. $inc keeps
// concurrent fresh-window openers individually counted; $setOnInsert stamps
// the expiry only when this caller created the document.
func countUpdate(resetAt time.Time) bson.M {
	return bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"resetAt": resetAt},
	}
}

// Allow counts one request against key's current window.
func (m *Mongo) Allow(ctx context.Context, key string) (Decision, error) {
	now := m.now().UTC()

	// Three attempts cover losing the fresh-window race twice in a row.
	for attempt := 0; attempt < 3; attempt++ {
		var doc windowDoc
		err := m.coll.FindOneAndUpdate(ctx,
			liveWindowFilter(key, now),
			bson.M{"$inc": bson.M{"count": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if err == nil {
			return decide(doc.Count, m.cfg.Max, doc.ResetAt), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		// No live window: clear lapsed state, then upsert-increment. A
		// concurrent caller on the same path lands its own $inc on the
		// same fresh document instead of overwriting the count.
		if _, err := m.coll.DeleteOne(ctx, expiredWindowFilter(key, now)); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		err = m.coll.FindOneAndUpdate(ctx,
			bson.M{"key": key},
			countUpdate(now.Add(m.cfg.Window)),
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&doc)
		if err == nil {
			return decide(doc.Count, m.cfg.Max, doc.ResetAt), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// Lost the upsert race: another instance inserted first. Retry
		// through the live-window path so this request still counts.
	}
	return Decision{}, fmt.Errorf("%w: window contention on %q", ErrUnavailable, key)
}
