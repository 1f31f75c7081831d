package eventRepo

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

func (r *mongoEventRepo) ApplyChanges(ctx context.Context, providerID string, upserts []models.ExternalEvent, removedExternalIDs []string) error {
	if len(upserts) == 0 && len(removedExternalIDs) == 0 {
		return nil
	}
	return r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := r.applyUpserts(sc, providerID, upserts); err != nil {
			return err
		}
		if len(removedExternalIDs) > 0 {
			filter := bson.M{
				"provider_id": providerID,
				"external_id": bson.M{"$in": removedExternalIDs},
			}
			if _, err := r.coll.DeleteMany(sc, filter); err != nil {
				return fmt.Errorf("delete removed events failed: %w", err)
			}
		}
		return nil
	})
}

func (r *mongoEventRepo) ReplaceForProvider(ctx context.Context, providerID string, events []models.ExternalEvent) error {
	return r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.coll.DeleteMany(sc, bson.M{"provider_id": providerID}); err != nil {
			return fmt.Errorf("clear mirrored events failed: %w", err)
		}
		return r.applyUpserts(sc, providerID, events)
	})
}

func (r *mongoEventRepo) applyUpserts(sc mongo.SessionContext, providerID string, events []models.ExternalEvent) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		ev.ProviderID = providerID
		ev.UpdatedAt = now

		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"provider_id": providerID, "external_id": ev.ExternalID}).
			SetReplacement(ev).
			SetUpsert(true))
	}
	if _, err := r.coll.BulkWrite(sc, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upsert mirrored events failed: %w", err)
	}
	return nil
}

func (r *mongoEventRepo) inTransaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("event mirror transaction failed: %w", err)
	}
	return nil
}

func (r *mongoEventRepo) ListByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.ExternalEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Half-open range match: any event with start < to and end > from.
	filter := bson.M{
		"provider_id": providerID,
		"start":       bson.M{"$lt": to},
		"end":         bson.M{"$gt": from},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list events for provider %s: %w", providerID, err)
	}
	defer cursor.Close(ctx)

	var events []models.ExternalEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events for provider %s: %w", providerID, err)
	}
	return events, nil
}
