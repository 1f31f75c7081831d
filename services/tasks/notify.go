package tasks

import (
	"encoding/json"

	"calmora/models"

	"github.com/hibiken/asynq"
)

const (
	TypeBookingStateChanged = "notify:booking_state"
	TypeConflictAlert       = "notify:conflict_alert"
	TypeCalendarSync        = "calendar:sync"
)

// CalendarSyncPayload carries one provider's sync request.
type CalendarSyncPayload struct {
	ProviderID string `json:"provider_id"`
}

func NewBookingStateTask(event models.BookingStateChanged) (*asynq.Task, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBookingStateChanged, b), nil
}

func NewConflictAlertTask(report models.ConflictReport) (*asynq.Task, error) {
	b, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeConflictAlert, b), nil
}

func NewCalendarSyncTask(providerID string) (*asynq.Task, error) {
	b, err := json.Marshal(CalendarSyncPayload{ProviderID: providerID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCalendarSync, b), nil
}
