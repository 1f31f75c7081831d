package models

import "time"

// Blocked reasons for an availability slot.
const (
	BlockReasonNone          = "none"
	BlockReasonExternalEvent = "external_event"
	BlockReasonManual        = "manual"
)

// AvailabilitySlot is the unit of bookable capacity, keyed by
// (provider_id, date, time). Rows exist only inside the rolling window.
type AvailabilitySlot struct {
	ID         string `bson:"id" json:"id"`
	ProviderID string `bson:"provider_id" json:"provider_id"`
	Date       string `bson:"date" json:"date"` // "YYYY-MM-DD"
	Time       string `bson:"time" json:"time"` // "HH:MM:SS"

	Blocked       bool   `bson:"blocked" json:"blocked"`
	BlockedReason string `bson:"blocked_reason" json:"blocked_reason"`

	// BookingID is the derived consumed marker: non-empty while an active
	// booking holds this slot. Only the booking arbiter writes it.
	BookingID string `bson:"booking_id" json:"booking_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Consumed reports whether an active booking holds this slot.
func (s *AvailabilitySlot) Consumed() bool {
	return s.BookingID != ""
}

// Bookable reports whether the slot can accept a new booking.
func (s *AvailabilitySlot) Bookable() bool {
	return !s.Blocked && !s.Consumed()
}
