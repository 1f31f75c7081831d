package lockRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SlotLock is an advisory lock row serializing mutations on one
// (provider, date, time) key. The unique _id makes acquisition atomic; the
// TTL index reaps locks abandoned by a crashed process.
type SlotLock struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// LockRepository provides operations for slot-key advisory locks.
type LockRepository interface {
	// Acquire returns false without error when another holder has the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type mongoLockRepo struct {
	coll *mongo.Collection
}

// NewMongoLockRepo constructs a new MongoDB LockRepository.
func NewMongoLockRepo() LockRepository {
	repo := &mongoLockRepo{
		coll: database.GetDB().Collection("slot_locks"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create slot lock indexes: %v\n", err)
	}
	return repo
}

// Key builds the canonical lock key for a slot.
func Key(providerID, date, timeOfDay string) string {
	return providerID + "|" + date + "|" + timeOfDay
}

func (r *mongoLockRepo) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	lock := SlotLock{ID: key, ExpiresAt: now.Add(ttl), CreatedAt: now}
	if _, err := r.coll.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire slot lock %s: %w", key, err)
	}
	return true, nil
}

func (r *mongoLockRepo) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to release slot lock %s: %w", key, err)
	}
	return nil
}
