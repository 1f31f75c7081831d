package tasks

import "github.com/hibiken/asynq"

const (
	// TypeCalendarSweep fans out one TypeCalendarSync task per linked provider.
	TypeCalendarSweep = "calendar:sweep"
	// TypeWindowMaintain extends every provider's rolling slot window and
	// purges slots older than today.
	TypeWindowMaintain = "window:maintain"
)

func NewCalendarSweepTask() *asynq.Task {
	return asynq.NewTask(TypeCalendarSweep, nil)
}

func NewWindowMaintainTask() *asynq.Task {
	return asynq.NewTask(TypeWindowMaintain, nil)
}
