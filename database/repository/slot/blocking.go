package slotRepo

import (
	"context"
	"fmt"
	"time"

	"calmora/models"

	"go.mongodb.org/mongo-driver/bson"
)

// MarkExternalBlocked blocks a slot for an overlapping external event. Slots
// already blocked or held by an active booking are left untouched.
func (r *mongoSlotRepo) MarkExternalBlocked(ctx context.Context, providerID, date, timeOfDay string) (bool, error) {
	filter := keyFilter(providerID, date, timeOfDay)
	filter["blocked"] = false
	filter["booking_id"] = ""

	update := bson.M{"$set": bson.M{
		"blocked":        true,
		"blocked_reason": models.BlockReasonExternalEvent,
		"updated_at":     time.Now(),
	}}
	return r.guardedUpdate(ctx, filter, update)
}

// ClearExternalBlock releases a block that was derived from an external event
// which no longer exists. Manual blocks and consumed slots are never touched.
func (r *mongoSlotRepo) ClearExternalBlock(ctx context.Context, providerID, date, timeOfDay string) (bool, error) {
	filter := keyFilter(providerID, date, timeOfDay)
	filter["blocked"] = true
	filter["blocked_reason"] = models.BlockReasonExternalEvent
	filter["booking_id"] = ""

	update := bson.M{"$set": bson.M{
		"blocked":        false,
		"blocked_reason": models.BlockReasonNone,
		"updated_at":     time.Now(),
	}}
	return r.guardedUpdate(ctx, filter, update)
}

// SetManualBlock applies or clears an operator block. Clearing refuses slots
// held by an active booking; booking-driven state is released only through
// the arbiter.
func (r *mongoSlotRepo) SetManualBlock(ctx context.Context, providerID, date, timeOfDay string, blocked bool) (bool, error) {
	filter := keyFilter(providerID, date, timeOfDay)
	set := bson.M{"updated_at": time.Now()}
	if blocked {
		set["blocked"] = true
		set["blocked_reason"] = models.BlockReasonManual
	} else {
		filter["booking_id"] = ""
		set["blocked"] = false
		set["blocked_reason"] = models.BlockReasonNone
	}
	return r.guardedUpdate(ctx, filter, bson.M{"$set": set})
}

// Consume sets the derived consumed marker on a bookable slot. A zero match
// means the slot is blocked, already consumed, or missing.
func (r *mongoSlotRepo) Consume(ctx context.Context, providerID, date, timeOfDay, bookingID string) (bool, error) {
	filter := keyFilter(providerID, date, timeOfDay)
	filter["blocked"] = false
	filter["booking_id"] = ""

	update := bson.M{"$set": bson.M{
		"booking_id": bookingID,
		"updated_at": time.Now(),
	}}
	return r.guardedUpdate(ctx, filter, update)
}

// Release clears the consumed marker, but only for the booking that holds it.
func (r *mongoSlotRepo) Release(ctx context.Context, providerID, date, timeOfDay, bookingID string) error {
	filter := keyFilter(providerID, date, timeOfDay)
	filter["booking_id"] = bookingID

	update := bson.M{"$set": bson.M{
		"booking_id": "",
		"updated_at": time.Now(),
	}}
	if _, err := r.guardedUpdate(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

func (r *mongoSlotRepo) guardedUpdate(ctx context.Context, filter, update bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update slot: %w", err)
	}
	return res.MatchedCount > 0, nil
}
