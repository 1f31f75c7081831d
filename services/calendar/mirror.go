package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	eventRepo "calmora/database/repository/event"
	providerRepo "calmora/database/repository/provider"
	"calmora/models"
	"calmora/services/notification"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cooldownKeyPrefix = "calsync:cooldown:"

// Mirror keeps the local copy of each provider's external calendar fresh.
// The mirror is the only reader of the upstream API; everything downstream
// (reconciliation, availability) works off the mirrored rows.
type Mirror interface {
	// SyncProvider refreshes one provider's mirrored events. Calls landing
	// inside the cooldown window are absorbed without touching upstream.
	SyncProvider(ctx context.Context, providerID string) error
	// SyncAll sweeps every calendar-linked provider. One provider failing
	// never stops the rest.
	SyncAll(ctx context.Context) error
}

// DefaultMirror is the production implementation.
type DefaultMirror struct {
	Providers providerRepo.ProviderRepository
	Events    eventRepo.EventRepository
	Creds     CredentialStore
	API       API
	Notifier  notification.Service
	Cooldown  *redis.Client
	Logger    *zap.Logger

	WindowDays   int
	SyncInterval time.Duration
	SyncTimeout  time.Duration

	group singleflight.Group
}

func NewDefaultMirror(
	providers providerRepo.ProviderRepository,
	events eventRepo.EventRepository,
	creds CredentialStore,
	api API,
	notifier notification.Service,
	cooldown *redis.Client,
	logger *zap.Logger,
	windowDays int,
	syncInterval, syncTimeout time.Duration,
) *DefaultMirror {
	return &DefaultMirror{
		Providers:    providers,
		Events:       events,
		Creds:        creds,
		API:          api,
		Notifier:     notifier,
		Cooldown:     cooldown,
		Logger:       logger,
		WindowDays:   windowDays,
		SyncInterval: syncInterval,
		SyncTimeout:  syncTimeout,
	}
}

func (m *DefaultMirror) SyncProvider(ctx context.Context, providerID string) error {
	// Concurrent callers for the same provider share one flight.
	_, err, _ := m.group.Do(providerID, func() (interface{}, error) {
		return nil, m.syncOne(ctx, providerID)
	})
	return err
}

func (m *DefaultMirror) SyncAll(ctx context.Context) error {
	providers, err := m.Providers.ListCalendarLinked(ctx)
	if err != nil {
		return fmt.Errorf("failed to list calendar-linked providers: %w", err)
	}

	var failures int
	for _, p := range providers {
		if err := m.SyncProvider(ctx, p.ID); err != nil {
			failures++
			m.Logger.Warn("calendar sync failed for provider",
				zap.String("providerID", p.ID),
				zap.Error(err))
		}
	}
	if failures > 0 {
		m.Logger.Warn("calendar sweep finished with failures",
			zap.Int("failures", failures),
			zap.Int("providers", len(providers)))
	}
	return nil
}

func (m *DefaultMirror) syncOne(ctx context.Context, providerID string) error {
	held, err := m.inCooldown(ctx, providerID)
	if err != nil {
		m.Logger.Warn("cooldown check failed, syncing anyway",
			zap.String("providerID", providerID), zap.Error(err))
	} else if held {
		m.Logger.Debug("calendar sync skipped, cooldown active",
			zap.String("providerID", providerID))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.SyncTimeout)
	defer cancel()

	provider, err := m.Providers.GetByID(ctx, providerID)
	if err != nil {
		return fmt.Errorf("failed to load provider %s: %w", providerID, err)
	}
	if provider == nil {
		return fmt.Errorf("provider %s not found", providerID)
	}
	if provider.CalendarID == "" || provider.CalendarLinkStatus == models.CalendarLinkNone {
		return nil
	}

	cred, err := m.Creds.GetCalendarCredential(ctx, providerID)
	if err != nil {
		return m.markCredentialExpired(ctx, provider, err)
	}

	from := time.Now()
	to := from.AddDate(0, 0, m.WindowDays)

	result, err := m.API.ListEvents(ctx, cred, provider.CalendarID, from, to, provider.CalendarSyncToken)
	if errors.Is(err, ErrSyncTokenRejected) {
		m.Logger.Info("sync token rejected, falling back to full refetch",
			zap.String("providerID", providerID))
		result, err = m.API.ListEvents(ctx, cred, provider.CalendarID, from, to, "")
		if err == nil {
			err = m.Events.ReplaceForProvider(ctx, providerID, m.ownEvents(providerID, result.Upserts))
		}
	} else if err == nil {
		err = m.Events.ApplyChanges(ctx, providerID, m.ownEvents(providerID, result.Upserts), result.RemovedIDs)
	}

	if errors.Is(err, ErrCredentialExpired) {
		return m.markCredentialExpired(ctx, provider, err)
	}
	if err != nil {
		return fmt.Errorf("sync for provider %s: %w", providerID, err)
	}

	if err := m.Providers.SetSyncState(ctx, providerID, result.NextSyncToken, time.Now()); err != nil {
		return fmt.Errorf("failed to record sync state for provider %s: %w", providerID, err)
	}
	m.armCooldown(ctx, providerID)
	if provider.CalendarLinkStatus == models.CalendarLinkExpired {
		if err := m.Providers.SetCalendarLinkStatus(ctx, providerID, models.CalendarLinkValid); err != nil {
			m.Logger.Warn("failed to restore calendar link status",
				zap.String("providerID", providerID), zap.Error(err))
		}
	}

	m.Logger.Info("calendar sync completed",
		zap.String("providerID", providerID),
		zap.Int("upserts", len(result.Upserts)),
		zap.Int("removed", len(result.RemovedIDs)))
	return nil
}

// inCooldown reports whether the provider synced successfully within the
// current interval. The key is armed only after a successful sync, so a
// failed attempt never absorbs its own retry.
func (m *DefaultMirror) inCooldown(ctx context.Context, providerID string) (bool, error) {
	err := m.Cooldown.Get(ctx, cooldownKeyPrefix+providerID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *DefaultMirror) armCooldown(ctx context.Context, providerID string) {
	if err := m.Cooldown.Set(ctx, cooldownKeyPrefix+providerID, time.Now().Unix(), m.SyncInterval).Err(); err != nil {
		m.Logger.Warn("failed to arm sync cooldown",
			zap.String("providerID", providerID), zap.Error(err))
	}
}

// markCredentialExpired flags the provider's link and raises an alert. The
// mirrored events are kept as-is: stale data is surfaced loudly rather than
// silently treated as an empty calendar.
func (m *DefaultMirror) markCredentialExpired(ctx context.Context, provider *models.Provider, cause error) error {
	if err := m.Providers.SetCalendarLinkStatus(ctx, provider.ID, models.CalendarLinkExpired); err != nil {
		m.Logger.Error("failed to mark calendar link expired",
			zap.String("providerID", provider.ID), zap.Error(err))
	}

	report := models.ConflictReport{
		ID:         uuid.NewString(),
		ProviderID: provider.ID,
		Detail:     "calendar credential expired, external events unknown until relinked",
		DetectedAt: time.Now(),
	}
	if err := m.Notifier.PublishConflictAlert(ctx, report); err != nil {
		m.Logger.Error("failed to publish credential-expired alert",
			zap.String("providerID", provider.ID), zap.Error(err))
	}
	return fmt.Errorf("provider %s: %w", provider.ID, cause)
}

func (m *DefaultMirror) ownEvents(providerID string, events []models.ExternalEvent) []models.ExternalEvent {
	owned := make([]models.ExternalEvent, len(events))
	for i, ev := range events {
		ev.ProviderID = providerID
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		owned[i] = ev
	}
	return owned
}
