package slotRepo

import (
	"context"
	"fmt"

	"calmora/database"
	"calmora/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// SlotRepository owns all writes to availability slot rows. The window
// manager, reconciler and booking arbiter are the only callers.
type SlotRepository interface {
	// EnsureMany inserts any missing slot rows without touching existing
	// ones, and returns the number actually inserted.
	EnsureMany(ctx context.Context, slots []models.AvailabilitySlot) (int64, error)
	HasSlotsOn(ctx context.Context, providerID, date string) (bool, error)
	GetByKey(ctx context.Context, providerID, date, timeOfDay string) (*models.AvailabilitySlot, error)
	ListByProviderRange(ctx context.Context, providerID, fromDate, toDate string) ([]models.AvailabilitySlot, error)
	PurgeBefore(ctx context.Context, date string, batchSize int) (int64, error)

	// Guarded block transitions used by the reconciler and admin overrides.
	MarkExternalBlocked(ctx context.Context, providerID, date, timeOfDay string) (bool, error)
	ClearExternalBlock(ctx context.Context, providerID, date, timeOfDay string) (bool, error)
	SetManualBlock(ctx context.Context, providerID, date, timeOfDay string, blocked bool) (bool, error)

	// Consumed-marker transitions used only by the booking arbiter.
	Consume(ctx context.Context, providerID, date, timeOfDay, bookingID string) (bool, error)
	Release(ctx context.Context, providerID, date, timeOfDay, bookingID string) error
}

type mongoSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoSlotRepo constructs a new MongoDB SlotRepository.
func NewMongoSlotRepo() SlotRepository {
	repo := &mongoSlotRepo{
		coll: database.GetDB().Collection("availability_slots"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create slot indexes: %v\n", err)
	}
	return repo
}
