package providerRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/database"
	"calmora/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type ProviderRepository interface {
	Create(ctx context.Context, provider *models.Provider) error
	GetByID(ctx context.Context, providerID string) (*models.Provider, error)
	ListAll(ctx context.Context) ([]models.Provider, error)
	ListCalendarLinked(ctx context.Context) ([]models.Provider, error)
	SetCalendarLinkStatus(ctx context.Context, providerID, status string) error
	// LinkCalendar attaches a calendar to the provider, marks the link valid
	// and resets incremental sync state so the next sync is a full listing.
	LinkCalendar(ctx context.Context, providerID, calendarID string) error
	SetSyncState(ctx context.Context, providerID, syncToken string, syncedAt time.Time) error
}

type mongoProviderRepo struct {
	coll *mongo.Collection
}

// NewMongoProviderRepo constructs a new MongoDB ProviderRepository.
func NewMongoProviderRepo() ProviderRepository {
	repo := &mongoProviderRepo{
		coll: database.GetDB().Collection("providers"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create provider indexes: %v\n", err)
	}
	return repo
}
