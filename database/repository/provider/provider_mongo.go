package providerRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (r *mongoProviderRepo) Create(ctx context.Context, provider *models.Provider) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if provider.ID == "" {
		provider.ID = uuid.New().String()
	}
	if provider.CalendarLinkStatus == "" {
		provider.CalendarLinkStatus = models.CalendarLinkNone
	}
	now := time.Now()
	provider.CreatedAt = now
	provider.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, provider); err != nil {
		return fmt.Errorf("failed to insert provider: %w", err)
	}
	return nil
}

func (r *mongoProviderRepo) GetByID(ctx context.Context, providerID string) (*models.Provider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var provider models.Provider
	err := r.coll.FindOne(ctx, bson.M{"id": providerID}).Decode(&provider)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch provider %s: %w", providerID, err)
	}
	return &provider, nil
}

func (r *mongoProviderRepo) ListAll(ctx context.Context) ([]models.Provider, error) {
	return r.list(ctx, bson.M{})
}

func (r *mongoProviderRepo) ListCalendarLinked(ctx context.Context) ([]models.Provider, error) {
	return r.list(ctx, bson.M{"calendar_link_status": models.CalendarLinkValid})
}

func (r *mongoProviderRepo) list(ctx context.Context, filter bson.M) ([]models.Provider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer cursor.Close(ctx)

	var providers []models.Provider
	if err := cursor.All(ctx, &providers); err != nil {
		return nil, fmt.Errorf("failed to decode providers: %w", err)
	}
	return providers, nil
}

func (r *mongoProviderRepo) SetCalendarLinkStatus(ctx context.Context, providerID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"calendar_link_status": status,
		"updated_at":           time.Now(),
	}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": providerID}, update); err != nil {
		return fmt.Errorf("failed to update calendar link status for provider %s: %w", providerID, err)
	}
	return nil
}

func (r *mongoProviderRepo) LinkCalendar(ctx context.Context, providerID, calendarID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"calendar_id":          calendarID,
		"calendar_link_status": models.CalendarLinkValid,
		"calendar_sync_token":  "",
		"last_synced_at":       time.Time{},
		"updated_at":           time.Now(),
	}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": providerID}, update); err != nil {
		return fmt.Errorf("failed to link calendar for provider %s: %w", providerID, err)
	}
	return nil
}

func (r *mongoProviderRepo) SetSyncState(ctx context.Context, providerID, syncToken string, syncedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"calendar_sync_token": syncToken,
		"last_synced_at":      syncedAt,
		"updated_at":          time.Now(),
	}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": providerID}, update); err != nil {
		return fmt.Errorf("failed to update sync state for provider %s: %w", providerID, err)
	}
	return nil
}
