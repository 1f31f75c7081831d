package models

// BookingStateChanged is the event payload emitted after every booking state
// transition commits. Delivery mechanics (email/WhatsApp/templates) live
// entirely behind the notification boundary.
type BookingStateChanged struct {
	BookingID      string `json:"booking_id"`
	Kind           string `json:"kind"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	ProviderID     string `json:"provider_id"`
	SubjectID      string `json:"subject_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}
