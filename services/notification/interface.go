package notification

import (
	"context"

	"calmora/models"
)

// Service is the boundary the core emits booking and reconciliation events
// through. Delivery mechanics (email/WhatsApp/templates) live entirely on the
// other side of it; a publish failure never unwinds a committed booking.
type Service interface {
	PublishBookingStateChanged(ctx context.Context, event models.BookingStateChanged) error
	PublishConflictAlert(ctx context.Context, report models.ConflictReport) error
}

// Sender delivers dequeued events to the external channel service. It is the
// worker-side counterpart of Service.
type Sender interface {
	SendBookingUpdate(ctx context.Context, event models.BookingStateChanged) error
	SendConflictAlert(ctx context.Context, report models.ConflictReport) error
}
