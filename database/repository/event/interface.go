package eventRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/database"
	"calmora/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type EventRepository interface {
	// ApplyChanges applies one sync cycle's upserts and deletions for a
	// provider atomically: either every mirrored change lands, or none do.
	ApplyChanges(ctx context.Context, providerID string, upserts []models.ExternalEvent, removedExternalIDs []string) error
	// ReplaceForProvider swaps the provider's full mirrored event set, used
	// when an incremental sync token is rejected upstream.
	ReplaceForProvider(ctx context.Context, providerID string, events []models.ExternalEvent) error
	ListByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.ExternalEvent, error)
}

type mongoEventRepo struct {
	coll *mongo.Collection
}

// NewMongoEventRepo constructs a new MongoDB EventRepository.
func NewMongoEventRepo() EventRepository {
	repo := &mongoEventRepo{
		coll: database.GetDB().Collection("external_events"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create event indexes: %v\n", err)
	}
	return repo
}
