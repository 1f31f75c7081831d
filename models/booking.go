package models

import "time"

// Booking kinds. All three compete for the same (provider, date, time) resource.
const (
	KindStandard       = "standard"
	KindPaidAssessment = "paid_assessment"
	KindFreeAssessment = "free_assessment"
)

// Booking statuses.
const (
	StatusReserved    = "reserved"
	StatusBooked      = "booked"
	StatusRescheduled = "rescheduled"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
)

// ActiveStatuses are the statuses that hold a slot. At most one booking of any
// kind may be in an active status for a given (provider, date, time).
var ActiveStatuses = []string{StatusReserved, StatusBooked, StatusRescheduled}

// RescheduleRequest is the pending sub-state for a short-notice reschedule
// that awaits administrator approval. No slot mutation happens until approval.
type RescheduleRequest struct {
	Date        string    `bson:"date" json:"date"`
	Time        string    `bson:"time" json:"time"`
	RequestedBy string    `bson:"requested_by" json:"requested_by"`
	RequestedAt time.Time `bson:"requested_at" json:"requested_at"`
}

// Booking represents one session of any kind, keyed by ID with a storage-level
// unique constraint on (provider_id, date, time) over active statuses.
type Booking struct {
	ID         string `bson:"id" json:"id"`
	ProviderID string `bson:"provider_id" json:"provider_id"`
	SubjectID  string `bson:"subject_id" json:"subject_id"`
	Kind       string `bson:"kind" json:"kind"`
	Date       string `bson:"date" json:"date"` // "YYYY-MM-DD"
	Time       string `bson:"time" json:"time"` // "HH:MM:SS"
	Status     string `bson:"status" json:"status"`

	RescheduleCount   int                `bson:"reschedule_count" json:"reschedule_count"`
	PendingReschedule *RescheduleRequest `bson:"pending_reschedule,omitempty" json:"pending_reschedule,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Active reports whether the booking currently holds its slot.
func (b *Booking) Active() bool {
	switch b.Status {
	case StatusReserved, StatusBooked, StatusRescheduled:
		return true
	}
	return false
}
