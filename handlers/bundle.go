package handlers

import (
	bookingRepo "calmora/database/repository/booking"
	conflictRepo "calmora/database/repository/conflict"
	providerRepo "calmora/database/repository/provider"
	slotRepo "calmora/database/repository/slot"
	"calmora/services/arbiter"
	"calmora/services/calendar"
	"calmora/services/reconcile"
	"calmora/services/window"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// HandlerBundle groups every endpoint's dependencies in one place so routes
// stay a flat wiring list.
type HandlerBundle struct {
	Arbiter    arbiter.Arbiter
	Window     window.Manager
	Reconciler reconcile.Reconciler
	Creds      calendar.CredentialStore

	Providers providerRepo.ProviderRepository
	Slots     slotRepo.SlotRepository
	Bookings  bookingRepo.BookingRepository
	Conflicts conflictRepo.ConflictRepository

	Cache *redis.Client
	Queue *asynq.Client
}
