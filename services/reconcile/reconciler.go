package reconcile

import (
	"context"
	"fmt"
	"time"

	conflictRepo "calmora/database/repository/conflict"
	eventRepo "calmora/database/repository/event"
	slotRepo "calmora/database/repository/slot"
	"calmora/models"
	"calmora/services/notification"
	"calmora/timecodec"

	"go.uber.org/zap"
)

// Reconciler derives a consistent blocked/unblocked slot state from the
// mirrored external events, and reports collisions with active bookings.
type Reconciler interface {
	Reconcile(ctx context.Context, providerID string) (Result, error)
	// ForceUnblockSlot is the administrative override. It refuses to release
	// a slot held by an active booking.
	ForceUnblockSlot(ctx context.Context, providerID, date, timeOfDay, actor string) error
}

// Result summarizes one reconciliation pass.
type Result struct {
	Blocked   int
	Unblocked int
	Conflicts int
}

// DefaultReconciler is the production implementation.
type DefaultReconciler struct {
	Slots        slotRepo.SlotRepository
	Events       eventRepo.EventRepository
	Conflicts    conflictRepo.ConflictRepository
	Notifier     notification.Service
	Logger       *zap.Logger
	WindowDays   int
	SlotDuration time.Duration
}

func (r *DefaultReconciler) Reconcile(ctx context.Context, providerID string) (Result, error) {
	var res Result

	today := timecodec.Today()
	horizon, err := timecodec.AddDays(today, r.WindowDays)
	if err != nil {
		return res, err
	}
	from, err := timecodec.At(today, "00:00:00")
	if err != nil {
		return res, err
	}
	to, err := timecodec.At(horizon, "00:00:00")
	if err != nil {
		return res, err
	}

	slots, err := r.Slots.ListByProviderRange(ctx, providerID, today, horizon)
	if err != nil {
		return res, err
	}
	events, err := r.Events.ListByProviderRange(ctx, providerID, from, to)
	if err != nil {
		return res, err
	}

	for i := range slots {
		slot := &slots[i]
		start, end, err := timecodec.SlotInterval(slot.Date, slot.Time, r.SlotDuration)
		if err != nil {
			r.Logger.Error("skipping malformed slot row",
				zap.String("providerId", providerID),
				zap.String("date", slot.Date),
				zap.String("time", slot.Time),
				zap.Error(err))
			continue
		}

		overlapping := firstOverlap(events, start, end)
		switch {
		case overlapping != nil && slot.Consumed():
			// The event collides with a held slot. Never auto-resolve;
			// surface it and let the booking flow or an operator decide.
			if err := r.reportConflict(ctx, slot, overlapping); err != nil {
				return res, err
			}
			res.Conflicts++

		case overlapping != nil:
			changed, err := r.Slots.MarkExternalBlocked(ctx, providerID, slot.Date, slot.Time)
			if err != nil {
				return res, err
			}
			if changed {
				res.Blocked++
			}

		case slot.Blocked && slot.BlockedReason == models.BlockReasonExternalEvent && !slot.Consumed():
			changed, err := r.Slots.ClearExternalBlock(ctx, providerID, slot.Date, slot.Time)
			if err != nil {
				return res, err
			}
			if changed {
				res.Unblocked++
			}
		}
	}

	if res.Blocked > 0 || res.Unblocked > 0 || res.Conflicts > 0 {
		r.Logger.Info("reconciled provider calendar",
			zap.String("providerId", providerID),
			zap.Int("blocked", res.Blocked),
			zap.Int("unblocked", res.Unblocked),
			zap.Int("conflicts", res.Conflicts))
	}
	return res, nil
}

// firstOverlap returns an event whose half-open range intersects [start, end),
// or nil. The strict s1 < e2 && s2 < e1 test handles sub-hour events and
// ranges crossing midnight.
func firstOverlap(events []models.ExternalEvent, start, end time.Time) *models.ExternalEvent {
	for i := range events {
		ev := &events[i]
		if timecodec.Overlaps(ev.Start, ev.End, start, end) {
			return ev
		}
	}
	return nil
}

func (r *DefaultReconciler) reportConflict(ctx context.Context, slot *models.AvailabilitySlot, ev *models.ExternalEvent) error {
	report := models.ConflictReport{
		ProviderID: slot.ProviderID,
		Date:       slot.Date,
		Time:       slot.Time,
		EventID:    ev.ExternalID,
		BookingID:  slot.BookingID,
		Detail:     fmt.Sprintf("external event %q overlaps a booked slot", ev.Title),
		DetectedAt: time.Now(),
	}
	if err := r.Conflicts.Create(ctx, &report); err != nil {
		return err
	}
	if err := r.Notifier.PublishConflictAlert(ctx, report); err != nil {
		// Alert delivery is best-effort; the stored report remains the
		// source of truth for operators.
		r.Logger.Warn("failed to publish conflict alert",
			zap.String("providerId", slot.ProviderID),
			zap.Error(err))
	}
	return nil
}

func (r *DefaultReconciler) ForceUnblockSlot(ctx context.Context, providerID, date, timeOfDay, actor string) error {
	changed, err := r.Slots.SetManualBlock(ctx, providerID, date, timeOfDay, false)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("slot (%s, %s, %s) not found or held by an active booking", providerID, date, timeOfDay)
	}
	r.Logger.Info("slot force-unblocked",
		zap.String("providerId", providerID),
		zap.String("date", date),
		zap.String("time", timeOfDay),
		zap.String("actor", actor))
	return nil
}
