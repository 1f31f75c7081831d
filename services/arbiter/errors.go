package arbiter

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotNotFound means no bookable slot row exists inside the
	// provider's active window for the requested (date, time).
	ErrSlotNotFound = errors.New("no bookable slot exists at this time")

	// ErrSlotContended means the slot-key lock could not be acquired in
	// time. Callers should treat it like a taken slot and retry.
	ErrSlotContended = errors.New("slot is being modified by another request")

	ErrBookingNotFound = errors.New("booking not found")

	// ErrRescheduleLimitExceeded is returned once a booking has used up its
	// configured reschedule allowance.
	ErrRescheduleLimitExceeded = errors.New("reschedule limit exceeded")

	// ErrPastOrNonCancellable is returned for cancellations of past sessions
	// or bookings not in a cancellable state.
	ErrPastOrNonCancellable = errors.New("booking is in the past or not cancellable")

	ErrNoPendingReschedule = errors.New("booking has no pending reschedule request")

	ErrAdminRequired = errors.New("administrator approval required for this action")
)

// SlotTakenError reports that an active booking of some kind already holds
// the requested slot. OwnBooking distinguishes the caller's own prior
// reservation (idempotent re-use allowed) from a hard conflict.
type SlotTakenError struct {
	BookingID  string
	OwnBooking bool
}

func (e *SlotTakenError) Error() string {
	if e.OwnBooking {
		return "this time is already held by your own booking"
	}
	return "this time is no longer available, please pick another slot"
}

// IsSlotTaken reports whether err is a slot-conflict error.
func IsSlotTaken(err error) bool {
	var st *SlotTakenError
	return errors.As(err, &st)
}

func slotTaken(bookingID string, own bool) error {
	return fmt.Errorf("reservation conflict: %w", &SlotTakenError{BookingID: bookingID, OwnBooking: own})
}
