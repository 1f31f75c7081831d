package models

import "time"

// ConflictReport records an external event colliding with a slot that an
// active booking already holds. Reports surface to operators; the reconciler
// never auto-resolves them.
type ConflictReport struct {
	ID         string    `bson:"id" json:"id"`
	ProviderID string    `bson:"provider_id" json:"provider_id"`
	Date       string    `bson:"date" json:"date"`
	Time       string    `bson:"time" json:"time"`
	EventID    string    `bson:"event_id,omitempty" json:"event_id,omitempty"`
	BookingID  string    `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	Detail     string    `bson:"detail" json:"detail"`
	DetectedAt time.Time `bson:"detected_at" json:"detected_at"`
}
