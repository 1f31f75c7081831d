package notification

import (
	"context"
	"fmt"

	"calmora/models"
	"calmora/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqDispatcher is the production Service: it enqueues events on the task
// queue and lets the worker hand them to the external channel service.
type AsynqDispatcher struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func NewAsynqDispatcher(client *asynq.Client, logger *zap.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{Client: client, Logger: logger}
}

func (d *AsynqDispatcher) PublishBookingStateChanged(ctx context.Context, event models.BookingStateChanged) error {
	task, err := tasks.NewBookingStateTask(event)
	if err != nil {
		return fmt.Errorf("failed to build booking state task: %w", err)
	}
	if _, err := d.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue booking state task: %w", err)
	}
	d.Logger.Debug("queued booking state change",
		zap.String("bookingId", event.BookingID),
		zap.String("newStatus", event.NewStatus))
	return nil
}

func (d *AsynqDispatcher) PublishConflictAlert(ctx context.Context, report models.ConflictReport) error {
	task, err := tasks.NewConflictAlertTask(report)
	if err != nil {
		return fmt.Errorf("failed to build conflict alert task: %w", err)
	}
	if _, err := d.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue conflict alert task: %w", err)
	}
	return nil
}

// LogSender is the default worker-side Sender until a real channel service is
// attached: it surfaces events in the operational log stream.
type LogSender struct {
	Logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{Logger: logger}
}

func (s *LogSender) SendBookingUpdate(_ context.Context, event models.BookingStateChanged) error {
	s.Logger.Info("booking state changed",
		zap.String("bookingId", event.BookingID),
		zap.String("kind", event.Kind),
		zap.String("previousStatus", event.PreviousStatus),
		zap.String("newStatus", event.NewStatus),
		zap.String("providerId", event.ProviderID),
		zap.String("subjectId", event.SubjectID),
		zap.String("date", event.Date),
		zap.String("time", event.Time))
	return nil
}

func (s *LogSender) SendConflictAlert(_ context.Context, report models.ConflictReport) error {
	s.Logger.Warn("reconciliation conflict",
		zap.String("providerId", report.ProviderID),
		zap.String("date", report.Date),
		zap.String("time", report.Time),
		zap.String("bookingId", report.BookingID),
		zap.String("detail", report.Detail))
	return nil
}
