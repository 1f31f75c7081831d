package conflictRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/database"
	"calmora/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConflictRepository interface {
	Create(ctx context.Context, report *models.ConflictReport) error
	ListRecent(ctx context.Context, limit int) ([]models.ConflictReport, error)
}

type mongoConflictRepo struct {
	coll *mongo.Collection
}

// NewMongoConflictRepo constructs a new MongoDB ConflictRepository.
func NewMongoConflictRepo() ConflictRepository {
	return &mongoConflictRepo{
		coll: database.GetDB().Collection("conflict_reports"),
	}
}

func (r *mongoConflictRepo) Create(ctx context.Context, report *models.ConflictReport) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.DetectedAt.IsZero() {
		report.DetectedAt = time.Now()
	}
	if _, err := r.coll.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert conflict report: %w", err)
	}
	return nil
}

func (r *mongoConflictRepo) ListRecent(ctx context.Context, limit int) ([]models.ConflictReport, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "detected_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflict reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.ConflictReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode conflict reports: %w", err)
	}
	return reports, nil
}
