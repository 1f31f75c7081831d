package window

import (
	"context"
	"time"

	providerRepo "calmora/database/repository/provider"
	slotRepo "calmora/database/repository/slot"

	"go.uber.org/zap"
)

// Manager maintains the rolling N-day availability window per provider.
type Manager interface {
	// EnsureWindow idempotently fills every missing slot row for the
	// provider inside [today, today+windowDays).
	EnsureWindow(ctx context.Context, providerID string) (int64, error)
	// AdvanceWindow inserts the newly-entered day's slots for all providers.
	// Safe to retry; providers already populated for that day are skipped.
	AdvanceWindow(ctx context.Context) error
	// PurgePast deletes all slot rows dated before today and returns the count.
	PurgePast(ctx context.Context) (int64, error)
}

// DefaultManager is the production implementation.
type DefaultManager struct {
	Slots        slotRepo.SlotRepository
	Providers    providerRepo.ProviderRepository
	Logger       *zap.Logger
	WindowDays   int
	SlotDuration time.Duration
	PurgeBatch   int
}

func NewDefaultManager(slots slotRepo.SlotRepository, providers providerRepo.ProviderRepository, logger *zap.Logger, windowDays int, slotDuration time.Duration) *DefaultManager {
	return &DefaultManager{
		Slots:        slots,
		Providers:    providers,
		Logger:       logger,
		WindowDays:   windowDays,
		SlotDuration: slotDuration,
		PurgeBatch:   500,
	}
}
