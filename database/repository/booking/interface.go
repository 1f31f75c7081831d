package bookingRepo

import (
	"context"
	"errors"
	"fmt"

	"calmora/database"
	"calmora/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrActiveBookingExists is returned when an insert or move collides with the
// storage-level uniqueness constraint on (provider, date, time) over active
// statuses.
var ErrActiveBookingExists = errors.New("an active booking already holds this slot")

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// FindActiveByKey returns the active booking holding (provider, date,
	// time) across all kinds, or nil when the slot is free.
	FindActiveByKey(ctx context.Context, providerID, date, timeOfDay string) (*models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) error
	ListBySubject(ctx context.Context, subjectID string) ([]models.Booking, error)
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	repo := &mongoBookingRepo{
		coll: database.GetDB().Collection("bookings"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}
