package window

import (
	"context"
	"fmt"

	"calmora/models"
	"calmora/timecodec"

	"go.uber.org/zap"
)

// slotTemplate expands a provider's workday bounds into the day's sequence of
// slot start times at the fixed slot duration.
func (m *DefaultManager) slotTemplate(provider *models.Provider) ([]string, error) {
	start, err := timecodec.ToHMS24(provider.WorkdayStart)
	if err != nil {
		return nil, fmt.Errorf("provider %s has invalid workday start: %w", provider.ID, err)
	}
	end, err := timecodec.ToHMS24(provider.WorkdayEnd)
	if err != nil {
		return nil, fmt.Errorf("provider %s has invalid workday end: %w", provider.ID, err)
	}

	step := int(m.SlotDuration.Minutes())
	var times []string
	for cur := start; cur < end; {
		times = append(times, cur)
		next, err := timecodec.AddMinutes(cur, step)
		if err != nil {
			// Ran into midnight; the template ends here.
			break
		}
		cur = next
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("provider %s has an empty slot template (%s-%s)", provider.ID, start, end)
	}
	return times, nil
}

func (m *DefaultManager) EnsureWindow(ctx context.Context, providerID string) (int64, error) {
	provider, err := m.Providers.GetByID(ctx, providerID)
	if err != nil {
		return 0, err
	}
	if provider == nil {
		return 0, fmt.Errorf("provider %s not found", providerID)
	}

	today := timecodec.Today()
	slots, err := m.buildSlots(provider, today, m.WindowDays)
	if err != nil {
		return 0, err
	}

	inserted, err := m.Slots.EnsureMany(ctx, slots)
	if err != nil {
		return 0, fmt.Errorf("failed to fill window for provider %s: %w", providerID, err)
	}
	if inserted > 0 {
		m.Logger.Info("filled availability window",
			zap.String("providerId", providerID),
			zap.Int64("inserted", inserted))
	}
	return inserted, nil
}

func (m *DefaultManager) AdvanceWindow(ctx context.Context) error {
	today := timecodec.Today()
	edge, err := timecodec.AddDays(today, m.WindowDays-1)
	if err != nil {
		return err
	}

	providers, err := m.Providers.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list providers for window advance: %w", err)
	}

	var failures int
	for i := range providers {
		provider := &providers[i]
		ok, err := m.Slots.HasSlotsOn(ctx, provider.ID, edge)
		if err == nil && ok {
			continue
		}
		if err == nil {
			err = m.advanceProvider(ctx, provider, edge)
		}
		if err != nil {
			// One provider's failure never aborts the rest of the sweep.
			failures++
			m.Logger.Error("window advance failed for provider",
				zap.String("providerId", provider.ID),
				zap.String("date", edge),
				zap.Error(err))
		}
	}

	m.Logger.Info("window advance complete",
		zap.String("date", edge),
		zap.Int("providers", len(providers)),
		zap.Int("failures", failures))
	return nil
}

func (m *DefaultManager) advanceProvider(ctx context.Context, provider *models.Provider, date string) error {
	slots, err := m.buildSlotsForDate(provider, date)
	if err != nil {
		return err
	}
	_, err = m.Slots.EnsureMany(ctx, slots)
	return err
}

func (m *DefaultManager) PurgePast(ctx context.Context) (int64, error) {
	today := timecodec.Today()
	purged, err := m.Slots.PurgeBefore(ctx, today, m.PurgeBatch)
	if err != nil {
		return purged, fmt.Errorf("slot purge failed: %w", err)
	}
	m.Logger.Info("purged past slots", zap.Int64("count", purged))
	return purged, nil
}

func (m *DefaultManager) buildSlots(provider *models.Provider, fromDate string, days int) ([]models.AvailabilitySlot, error) {
	template, err := m.slotTemplate(provider)
	if err != nil {
		return nil, err
	}
	var slots []models.AvailabilitySlot
	date := fromDate
	for day := 0; day < days; day++ {
		for _, tod := range template {
			slots = append(slots, models.AvailabilitySlot{
				ProviderID:    provider.ID,
				Date:          date,
				Time:          tod,
				BlockedReason: models.BlockReasonNone,
			})
		}
		if date, err = timecodec.AddDays(date, 1); err != nil {
			return nil, err
		}
	}
	return slots, nil
}

func (m *DefaultManager) buildSlotsForDate(provider *models.Provider, date string) ([]models.AvailabilitySlot, error) {
	template, err := m.slotTemplate(provider)
	if err != nil {
		return nil, err
	}
	slots := make([]models.AvailabilitySlot, 0, len(template))
	for _, tod := range template {
		slots = append(slots, models.AvailabilitySlot{
			ProviderID:    provider.ID,
			Date:          date,
			Time:          tod,
			BlockedReason: models.BlockReasonNone,
		})
	}
	return slots, nil
}
