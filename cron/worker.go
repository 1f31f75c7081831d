package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"calmora/config"
	providerRepo "calmora/database/repository/provider"
	"calmora/models"
	"calmora/services/calendar"
	"calmora/services/notification"
	"calmora/services/reconcile"
	"calmora/services/tasks"
	"calmora/services/window"
	"calmora/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Deps carries everything the background worker operates on.
type Deps struct {
	Providers  providerRepo.ProviderRepository
	Mirror     calendar.Mirror
	Reconciler reconcile.Reconciler
	Window     window.Manager
	Sender     notification.Sender
	Client     *asynq.Client
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitWorker starts the async worker and the periodic scheduler in the
// background. The worker owns every deferred side effect: notification
// delivery, calendar syncs, and the daily window roll.
func InitWorker(deps Deps) {
	logger := utils.GetLogger().With(zap.String("component", "worker"))

	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingStateChanged, handleBookingState(deps.Sender, logger))
	mux.HandleFunc(tasks.TypeConflictAlert, handleConflictAlert(deps.Sender, logger))
	mux.HandleFunc(tasks.TypeCalendarSync, handleCalendarSync(deps, logger))
	mux.HandleFunc(tasks.TypeCalendarSweep, handleCalendarSweep(deps, logger))
	mux.HandleFunc(tasks.TypeWindowMaintain, handleWindowMaintain(deps, logger))

	go func() {
		logger.Info("starting async worker")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("worker failed to start",
					zap.Int("attempt", attempts),
					zap.Int("maxAttempts", maxAttempts),
					zap.Error(err))
				if attempts == maxAttempts {
					logger.Fatal("max worker start attempts reached")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runScheduler(logger)
}

// runScheduler enqueues the periodic maintenance tasks. The tasks themselves
// are executed by the worker mux so retries and failure isolation apply.
func runScheduler(logger *zap.Logger) {
	scheduler := asynq.NewScheduler(redisOpts(), &asynq.SchedulerOpts{})

	sweepSpec := fmt.Sprintf("@every %dm", config.AppConfig.SyncIntervalMin)
	if _, err := scheduler.Register(sweepSpec, tasks.NewCalendarSweepTask()); err != nil {
		logger.Fatal("failed to register calendar sweep", zap.Error(err))
	}
	if _, err := scheduler.Register("5 0 * * *", tasks.NewWindowMaintainTask()); err != nil {
		logger.Fatal("failed to register window maintenance", zap.Error(err))
	}

	logger.Info("starting scheduler", zap.String("sweepInterval", sweepSpec))
	if err := scheduler.Run(); err != nil {
		logger.Fatal("scheduler exited", zap.Error(err))
	}
}

func handleBookingState(sender notification.Sender, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var event models.BookingStateChanged
		if err := json.Unmarshal(task.Payload(), &event); err != nil {
			logger.Error("invalid booking state payload", zap.Error(err))
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		return sender.SendBookingUpdate(ctx, event)
	}
}

func handleConflictAlert(sender notification.Sender, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var report models.ConflictReport
		if err := json.Unmarshal(task.Payload(), &report); err != nil {
			logger.Error("invalid conflict alert payload", zap.Error(err))
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		return sender.SendConflictAlert(ctx, report)
	}
}

// handleCalendarSync refreshes one provider's mirror and immediately
// reconciles its slots against the fresh events.
func handleCalendarSync(deps Deps, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.CalendarSyncPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid calendar sync payload", zap.Error(err))
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		if err := deps.Mirror.SyncProvider(ctx, p.ProviderID); err != nil {
			return fmt.Errorf("sync provider %s: %w", p.ProviderID, err)
		}

		result, err := deps.Reconciler.Reconcile(ctx, p.ProviderID)
		if err != nil {
			return fmt.Errorf("reconcile provider %s: %w", p.ProviderID, err)
		}
		if result.Blocked > 0 || result.Unblocked > 0 || result.Conflicts > 0 {
			logger.Info("reconciliation applied changes",
				zap.String("providerID", p.ProviderID),
				zap.Int("blocked", result.Blocked),
				zap.Int("unblocked", result.Unblocked),
				zap.Int("conflicts", result.Conflicts))
		}
		return nil
	}
}

// handleCalendarSweep fans out per-provider sync tasks so a slow or failing
// provider only delays its own task.
func handleCalendarSweep(deps Deps, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		providers, err := deps.Providers.ListCalendarLinked(ctx)
		if err != nil {
			return fmt.Errorf("failed to list linked providers: %w", err)
		}
		for _, p := range providers {
			syncTask, err := tasks.NewCalendarSyncTask(p.ID)
			if err != nil {
				logger.Error("failed to build sync task",
					zap.String("providerID", p.ID), zap.Error(err))
				continue
			}
			if _, err := deps.Client.EnqueueContext(ctx, syncTask); err != nil {
				logger.Error("failed to enqueue sync task",
					zap.String("providerID", p.ID), zap.Error(err))
			}
		}
		logger.Info("calendar sweep enqueued", zap.Int("providers", len(providers)))
		return nil
	}
}

func handleWindowMaintain(deps Deps, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := deps.Window.AdvanceWindow(ctx); err != nil {
			return fmt.Errorf("advance window: %w", err)
		}
		purged, err := deps.Window.PurgePast(ctx)
		if err != nil {
			return fmt.Errorf("purge past slots: %w", err)
		}
		logger.Info("window maintenance completed", zap.Int64("purged", purged))
		return nil
	}
}
