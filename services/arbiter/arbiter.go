package arbiter

import (
	"context"
	"fmt"
	"sort"
	"time"

	bookingRepo "calmora/database/repository/booking"
	lockRepo "calmora/database/repository/locks"
	"calmora/models"
	"calmora/timecodec"

	"go.uber.org/zap"
)

const lockRetries = 3

// withSlotLocks runs fn while holding the advisory locks for every given
// slot key. Keys are acquired in sorted order so two operations touching the
// same pair of slots can never deadlock. The locks cover only the local
// read-check-write; nothing inside fn may block on network I/O.
func (a *DefaultArbiter) withSlotLocks(ctx context.Context, keys []string, fn func(context.Context) error) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var held []string
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := a.Locks.Release(context.Background(), held[i]); err != nil {
				a.Logger.Warn("failed to release slot lock", zap.String("key", held[i]), zap.Error(err))
			}
		}
	}()

	for _, key := range sorted {
		acquired := false
		for attempt := 0; attempt < lockRetries; attempt++ {
			ok, err := a.Locks.Acquire(ctx, key, a.LockTTL)
			if err != nil {
				return err
			}
			if ok {
				acquired = true
				break
			}
			time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
		}
		if !acquired {
			return fmt.Errorf("lock %s: %w", key, ErrSlotContended)
		}
		held = append(held, key)
	}

	return fn(ctx)
}

func (a *DefaultArbiter) ReserveOrBook(ctx context.Context, req ReserveRequest) (*models.Booking, error) {
	timeOfDay, err := timecodec.ToHMS24(req.Time)
	if err != nil {
		return nil, err
	}
	if _, err := timecodec.ParseDate(req.Date); err != nil {
		return nil, err
	}

	slot, err := a.Slots.GetByKey(ctx, req.ProviderID, req.Date, timeOfDay)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	status := models.StatusBooked
	if req.Staged {
		status = models.StatusReserved
	}

	var booking *models.Booking
	created := false
	key := lockRepo.Key(req.ProviderID, req.Date, timeOfDay)
	err = a.withSlotLocks(ctx, []string{key}, func(ctx context.Context) error {
		existing, err := a.Bookings.FindActiveByKey(ctx, req.ProviderID, req.Date, timeOfDay)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.SubjectID == req.SubjectID && existing.Kind == req.Kind {
				// Idempotent re-use of the caller's own reservation.
				booking = existing
				return nil
			}
			return slotTaken(existing.ID, existing.SubjectID == req.SubjectID)
		}

		current, err := a.Slots.GetByKey(ctx, req.ProviderID, req.Date, timeOfDay)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrSlotNotFound
		}
		if !current.Bookable() {
			return slotTaken(current.BookingID, false)
		}

		booking = &models.Booking{
			ProviderID: req.ProviderID,
			SubjectID:  req.SubjectID,
			Kind:       req.Kind,
			Date:       req.Date,
			Time:       timeOfDay,
			Status:     status,
		}
		if err := a.Bookings.Create(ctx, booking); err != nil {
			if err == bookingRepo.ErrActiveBookingExists {
				return slotTaken("", false)
			}
			return err
		}

		consumed, err := a.Slots.Consume(ctx, req.ProviderID, req.Date, timeOfDay, booking.ID)
		if err != nil {
			return err
		}
		if !consumed {
			booking.Status = models.StatusCancelled
			if uerr := a.Bookings.Update(ctx, booking); uerr != nil {
				a.Logger.Error("failed to void booking after consume miss",
					zap.String("bookingId", booking.ID), zap.Error(uerr))
			}
			return slotTaken("", false)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		a.publish(booking, "", booking.Status)
	}
	return booking, nil
}

func (a *DefaultArbiter) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := a.mustGet(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusBooked {
		return booking, nil
	}
	if booking.Status != models.StatusReserved {
		return nil, fmt.Errorf("booking %s cannot be confirmed from status %s", bookingID, booking.Status)
	}

	key := lockRepo.Key(booking.ProviderID, booking.Date, booking.Time)
	err = a.withSlotLocks(ctx, []string{key}, func(ctx context.Context) error {
		booking.Status = models.StatusBooked
		return a.Bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	a.publish(booking, models.StatusReserved, models.StatusBooked)
	return booking, nil
}

func (a *DefaultArbiter) Cancel(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	booking, err := a.mustGet(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusBooked && booking.Status != models.StatusRescheduled {
		return nil, ErrPastOrNonCancellable
	}
	if !a.isFuture(booking.Date, booking.Time) {
		return nil, ErrPastOrNonCancellable
	}

	previous := booking.Status
	key := lockRepo.Key(booking.ProviderID, booking.Date, booking.Time)
	err = a.withSlotLocks(ctx, []string{key}, func(ctx context.Context) error {
		booking.Status = models.StatusCancelled
		booking.PendingReschedule = nil
		if err := a.Bookings.Update(ctx, booking); err != nil {
			return err
		}
		return a.Slots.Release(ctx, booking.ProviderID, booking.Date, booking.Time, booking.ID)
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Info("booking cancelled",
		zap.String("bookingId", booking.ID),
		zap.String("actor", actor.ID))
	a.publish(booking, previous, models.StatusCancelled)
	return booking, nil
}

func (a *DefaultArbiter) Reschedule(ctx context.Context, bookingID, newDate, newTime string, actor Actor) (*models.Booking, error) {
	newTimeOfDay, err := timecodec.ToHMS24(newTime)
	if err != nil {
		return nil, err
	}
	if _, err := timecodec.ParseDate(newDate); err != nil {
		return nil, err
	}

	booking, err := a.mustGet(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusBooked && booking.Status != models.StatusRescheduled {
		return nil, fmt.Errorf("booking %s cannot be rescheduled from status %s", bookingID, booking.Status)
	}
	if booking.RescheduleCount >= a.RescheduleMax {
		return nil, ErrRescheduleLimitExceeded
	}
	if booking.Date == newDate && booking.Time == newTimeOfDay {
		return booking, nil
	}

	// Short-notice requests from non-admins only park a pending request;
	// the slots stay untouched until an administrator approves.
	if !actor.Admin && a.withinShortNotice(booking.Date, booking.Time) {
		booking.PendingReschedule = &models.RescheduleRequest{
			Date:        newDate,
			Time:        newTimeOfDay,
			RequestedBy: actor.ID,
			RequestedAt: time.Now(),
		}
		if err := a.Bookings.Update(ctx, booking); err != nil {
			return nil, err
		}
		a.Logger.Info("reschedule parked for approval",
			zap.String("bookingId", booking.ID),
			zap.String("requestedBy", actor.ID))
		return booking, nil
	}

	return a.moveBooking(ctx, booking, newDate, newTimeOfDay)
}

func (a *DefaultArbiter) ApproveReschedule(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	if !actor.Admin {
		return nil, ErrAdminRequired
	}
	booking, err := a.mustGet(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PendingReschedule == nil {
		return nil, ErrNoPendingReschedule
	}
	if booking.RescheduleCount >= a.RescheduleMax {
		return nil, ErrRescheduleLimitExceeded
	}

	target := booking.PendingReschedule
	moved, err := a.moveBooking(ctx, booking, target.Date, target.Time)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("short-notice reschedule approved",
		zap.String("bookingId", booking.ID),
		zap.String("approvedBy", actor.ID))
	return moved, nil
}

// moveBooking atomically releases the booking's current slot and consumes the
// target slot, holding both keys for the duration of the check-and-write.
func (a *DefaultArbiter) moveBooking(ctx context.Context, booking *models.Booking, newDate, newTimeOfDay string) (*models.Booking, error) {
	oldDate, oldTime := booking.Date, booking.Time
	previous := booking.Status

	oldKey := lockRepo.Key(booking.ProviderID, oldDate, oldTime)
	newKey := lockRepo.Key(booking.ProviderID, newDate, newTimeOfDay)

	err := a.withSlotLocks(ctx, []string{oldKey, newKey}, func(ctx context.Context) error {
		target, err := a.Slots.GetByKey(ctx, booking.ProviderID, newDate, newTimeOfDay)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrSlotNotFound
		}

		// The booking's own current slot is excluded from the conflict
		// check by construction: it lives at a different key.
		existing, err := a.Bookings.FindActiveByKey(ctx, booking.ProviderID, newDate, newTimeOfDay)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != booking.ID {
			return slotTaken(existing.ID, existing.SubjectID == booking.SubjectID)
		}
		if !target.Bookable() {
			return slotTaken(target.BookingID, false)
		}

		consumed, err := a.Slots.Consume(ctx, booking.ProviderID, newDate, newTimeOfDay, booking.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return slotTaken("", false)
		}

		booking.Date = newDate
		booking.Time = newTimeOfDay
		booking.Status = models.StatusRescheduled
		booking.RescheduleCount++
		booking.PendingReschedule = nil
		if err := a.Bookings.Update(ctx, booking); err != nil {
			if rerr := a.Slots.Release(ctx, booking.ProviderID, newDate, newTimeOfDay, booking.ID); rerr != nil {
				a.Logger.Error("failed to release slot after move failure",
					zap.String("bookingId", booking.ID), zap.Error(rerr))
			}
			return err
		}

		return a.Slots.Release(ctx, booking.ProviderID, oldDate, oldTime, booking.ID)
	})
	if err != nil {
		return nil, err
	}

	a.publish(booking, previous, models.StatusRescheduled)
	return booking, nil
}

func (a *DefaultArbiter) mustGet(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := a.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (a *DefaultArbiter) isFuture(date, timeOfDay string) bool {
	at, err := timecodec.At(date, timeOfDay)
	if err != nil {
		return false
	}
	return at.After(time.Now())
}

func (a *DefaultArbiter) withinShortNotice(date, timeOfDay string) bool {
	at, err := timecodec.At(date, timeOfDay)
	if err != nil {
		return false
	}
	return time.Until(at) <= a.ShortNotice
}

// publish emits the state-change event strictly after the slot transaction.
// Delivery is best-effort and never unwinds a committed booking.
func (a *DefaultArbiter) publish(booking *models.Booking, previous, next string) {
	if booking == nil || previous == next {
		return
	}
	event := models.BookingStateChanged{
		BookingID:      booking.ID,
		Kind:           booking.Kind,
		PreviousStatus: previous,
		NewStatus:      next,
		ProviderID:     booking.ProviderID,
		SubjectID:      booking.SubjectID,
		Date:           booking.Date,
		Time:           booking.Time,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Notifier.PublishBookingStateChanged(ctx, event); err != nil {
		a.Logger.Warn("failed to publish booking state change",
			zap.String("bookingId", booking.ID), zap.Error(err))
	}
}
