package slotRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func keyFilter(providerID, date, timeOfDay string) bson.M {
	return bson.M{"provider_id": providerID, "date": date, "time": timeOfDay}
}

func (r *mongoSlotRepo) EnsureMany(ctx context.Context, slots []models.AvailabilitySlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(slots))
	for _, slot := range slots {
		if slot.ID == "" {
			slot.ID = uuid.New().String()
		}
		if slot.BlockedReason == "" {
			slot.BlockedReason = models.BlockReasonNone
		}
		slot.CreatedAt = now
		slot.UpdatedAt = now

		// $setOnInsert so an existing row (and any manual block on it) is
		// never overwritten by a window refill.
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(keyFilter(slot.ProviderID, slot.Date, slot.Time)).
			SetUpdate(bson.M{"$setOnInsert": slot}).
			SetUpsert(true))
	}

	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("failed to ensure slot rows: %w", err)
	}
	return res.UpsertedCount, nil
}

func (r *mongoSlotRepo) HasSlotsOn(ctx context.Context, providerID, date string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := r.coll.CountDocuments(ctx, bson.M{"provider_id": providerID, "date": date}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count slots for provider %s on %s: %w", providerID, date, err)
	}
	return count > 0, nil
}

func (r *mongoSlotRepo) GetByKey(ctx context.Context, providerID, date, timeOfDay string) (*models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var slot models.AvailabilitySlot
	err := r.coll.FindOne(ctx, keyFilter(providerID, date, timeOfDay)).Decode(&slot)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch slot (%s, %s, %s): %w", providerID, date, timeOfDay, err)
	}
	return &slot, nil
}

func (r *mongoSlotRepo) ListByProviderRange(ctx context.Context, providerID, fromDate, toDate string) ([]models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"provider_id": providerID,
		"date":        bson.M{"$gte": fromDate, "$lt": toDate},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for provider %s: %w", providerID, err)
	}
	defer cursor.Close(ctx)

	var slots []models.AvailabilitySlot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots for provider %s: %w", providerID, err)
	}
	return slots, nil
}

// PurgeBefore deletes slot rows older than the given date in bounded batches
// so the janitor never holds a long-running lock.
func (r *mongoSlotRepo) PurgeBefore(ctx context.Context, date string, batchSize int) (int64, error) {
	var total int64
	for {
		ids, err := r.pastSlotIDs(ctx, date, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		delCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		res, err := r.coll.DeleteMany(delCtx, bson.M{"id": bson.M{"$in": ids}})
		cancel()
		if err != nil {
			return total, fmt.Errorf("failed to purge slot batch: %w", err)
		}
		total += res.DeletedCount
		if int(res.DeletedCount) < batchSize {
			return total, nil
		}
	}
}

func (r *mongoSlotRepo) pastSlotIDs(ctx context.Context, date string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"id": 1, "_id": 0})
	cursor, err := r.coll.Find(ctx, bson.M{"date": bson.M{"$lt": date}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find past slots: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode past slot ids: %w", err)
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}
