package arbiter

import (
	"context"
	"time"

	bookingRepo "calmora/database/repository/booking"
	lockRepo "calmora/database/repository/locks"
	slotRepo "calmora/database/repository/slot"
	"calmora/models"
	"calmora/services/notification"

	"go.uber.org/zap"
)

// Actor identifies who is performing a booking operation.
type Actor struct {
	ID    string
	Admin bool
}

// ReserveRequest describes one reservation attempt. Staged creates the
// booking in "reserved" pending a separate Confirm step (payment-style
// flows); otherwise the booking lands directly in "booked".
type ReserveRequest struct {
	ProviderID string
	SubjectID  string
	Kind       string
	Date       string
	Time       string
	Staged     bool
}

// Arbiter owns every Booking mutation. All operations serialize on the
// (provider, date, time) key so concurrent requests cannot both pass the
// "is it free" check.
type Arbiter interface {
	ReserveOrBook(ctx context.Context, req ReserveRequest) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error)
	// Reschedule moves a booking to a new slot. Inside the short-notice
	// window a non-admin request is parked as a pending sub-state instead;
	// the returned booking's PendingReschedule is set and no slot changes.
	Reschedule(ctx context.Context, bookingID, newDate, newTime string, actor Actor) (*models.Booking, error)
	ApproveReschedule(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error)
}

// DefaultArbiter is the production implementation.
type DefaultArbiter struct {
	Bookings bookingRepo.BookingRepository
	Slots    slotRepo.SlotRepository
	Locks    lockRepo.LockRepository
	Notifier notification.Service
	Logger   *zap.Logger

	RescheduleMax int
	ShortNotice   time.Duration
	LockTTL       time.Duration
}

func NewDefaultArbiter(
	bookings bookingRepo.BookingRepository,
	slots slotRepo.SlotRepository,
	locks lockRepo.LockRepository,
	notifier notification.Service,
	logger *zap.Logger,
	rescheduleMax int,
	shortNotice time.Duration,
) *DefaultArbiter {
	return &DefaultArbiter{
		Bookings:      bookings,
		Slots:         slots,
		Locks:         locks,
		Notifier:      notifier,
		Logger:        logger,
		RescheduleMax: rescheduleMax,
		ShortNotice:   shortNotice,
		LockTTL:       15 * time.Second,
	}
}
