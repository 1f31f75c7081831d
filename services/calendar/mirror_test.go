package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"calmora/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type memProviderRepo struct {
	mu        sync.Mutex
	providers map[string]*models.Provider
}

func newMemProviderRepo(providers ...*models.Provider) *memProviderRepo {
	m := &memProviderRepo{providers: make(map[string]*models.Provider)}
	for _, p := range providers {
		m.providers[p.ID] = p
	}
	return m
}

func (m *memProviderRepo) Create(ctx context.Context, provider *models.Provider) error {
	return nil
}

func (m *memProviderRepo) GetByID(ctx context.Context, providerID string) (*models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[providerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProviderRepo) ListAll(ctx context.Context) ([]models.Provider, error) {
	return nil, nil
}

func (m *memProviderRepo) ListCalendarLinked(ctx context.Context) ([]models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Provider
	for _, p := range m.providers {
		if p.CalendarLinkStatus == models.CalendarLinkValid {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProviderRepo) SetCalendarLinkStatus(ctx context.Context, providerID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[providerID]; ok {
		p.CalendarLinkStatus = status
	}
	return nil
}

func (m *memProviderRepo) LinkCalendar(ctx context.Context, providerID, calendarID string) error {
	return nil
}

func (m *memProviderRepo) SetSyncState(ctx context.Context, providerID, syncToken string, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[providerID]; ok {
		p.CalendarSyncToken = syncToken
		p.LastSyncedAt = syncedAt
	}
	return nil
}

func (m *memProviderRepo) get(providerID string) models.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.providers[providerID]
}

type memEventRepo struct {
	mu       sync.Mutex
	applied  []models.ExternalEvent
	removed  []string
	replaced []models.ExternalEvent
	replaces int
}

func (m *memEventRepo) ApplyChanges(ctx context.Context, providerID string, upserts []models.ExternalEvent, removedExternalIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, upserts...)
	m.removed = append(m.removed, removedExternalIDs...)
	return nil
}

func (m *memEventRepo) ReplaceForProvider(ctx context.Context, providerID string, events []models.ExternalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced = events
	m.replaces++
	return nil
}

func (m *memEventRepo) ListByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.ExternalEvent, error) {
	return nil, nil
}

type scriptedAPI struct {
	mu    sync.Mutex
	calls []string // sync tokens seen, in order
	pages map[string]*ListResult
	errs  map[string]error
}

func newScriptedAPI() *scriptedAPI {
	return &scriptedAPI{pages: make(map[string]*ListResult), errs: make(map[string]error)}
}

func (s *scriptedAPI) ListEvents(ctx context.Context, cred *oauth2.Token, calendarID string, from, to time.Time, syncToken string) (*ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, syncToken)
	if err, ok := s.errs[syncToken]; ok {
		return nil, err
	}
	if res, ok := s.pages[syncToken]; ok {
		return res, nil
	}
	return &ListResult{}, nil
}

func (s *scriptedAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.ConflictReport
}

func (r *recordingNotifier) PublishBookingStateChanged(ctx context.Context, event models.BookingStateChanged) error {
	return nil
}

func (r *recordingNotifier) PublishConflictAlert(ctx context.Context, report models.ConflictReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, report)
	return nil
}

func linkedProvider(id, syncToken string) *models.Provider {
	return &models.Provider{
		ID:                 id,
		Name:               "Provider " + id,
		CalendarID:         "cal-" + id,
		CalendarLinkStatus: models.CalendarLinkValid,
		CalendarSyncToken:  syncToken,
	}
}

func newTestMirror(t *testing.T, providers *memProviderRepo, api *scriptedAPI, seedCred bool) (*DefaultMirror, *memEventRepo, *recordingNotifier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	creds := NewRedisTokenStore(client, nil)
	if seedCred {
		for id := range providers.providers {
			require.NoError(t, creds.SaveCalendarCredential(context.Background(), id, &oauth2.Token{AccessToken: "tok-" + id}))
		}
	}

	events := &memEventRepo{}
	notifier := &recordingNotifier{}
	m := NewDefaultMirror(providers, events, creds, api, notifier, client, zap.NewNop(), 21, 15*time.Minute, 30*time.Second)
	return m, events, notifier, mr
}

func TestSyncProviderAppliesIncrementalChanges(t *testing.T) {
	providers := newMemProviderRepo(linkedProvider("p1", "tok-old"))
	api := newScriptedAPI()
	api.pages["tok-old"] = &ListResult{
		Upserts: []models.ExternalEvent{
			{ExternalID: "ev-1", Title: "Busy", Start: time.Now(), End: time.Now().Add(time.Hour)},
		},
		RemovedIDs:    []string{"ev-gone"},
		NextSyncToken: "tok-new",
	}
	m, events, _, _ := newTestMirror(t, providers, api, true)

	require.NoError(t, m.SyncProvider(context.Background(), "p1"))

	require.Len(t, events.applied, 1)
	assert.Equal(t, "p1", events.applied[0].ProviderID)
	assert.NotEmpty(t, events.applied[0].ID)
	assert.Equal(t, []string{"ev-gone"}, events.removed)

	p := providers.get("p1")
	assert.Equal(t, "tok-new", p.CalendarSyncToken)
	assert.False(t, p.LastSyncedAt.IsZero())
}

func TestSyncProviderCooldownAbsorbsRepeats(t *testing.T) {
	providers := newMemProviderRepo(linkedProvider("p1", ""))
	api := newScriptedAPI()
	m, _, _, mr := newTestMirror(t, providers, api, true)

	require.NoError(t, m.SyncProvider(context.Background(), "p1"))
	require.NoError(t, m.SyncProvider(context.Background(), "p1"))
	assert.Equal(t, 1, api.callCount())

	// After the cooldown lapses the next call reaches upstream again.
	mr.FastForward(16 * time.Minute)
	require.NoError(t, m.SyncProvider(context.Background(), "p1"))
	assert.Equal(t, 2, api.callCount())
}

func TestSyncProviderRetriesAfterTransientFailure(t *testing.T) {
	providers := newMemProviderRepo(linkedProvider("p1", ""))
	api := newScriptedAPI()
	api.errs[""] = ErrSyncTransport
	m, events, _, _ := newTestMirror(t, providers, api, true)

	// A failed attempt surfaces its error and records nothing.
	err := m.SyncProvider(context.Background(), "p1")
	require.ErrorIs(t, err, ErrSyncTransport)
	assert.True(t, providers.get("p1").LastSyncedAt.IsZero())

	// Upstream recovers. The retry must reach it immediately; only a
	// successful sync arms the cooldown.
	api.mu.Lock()
	delete(api.errs, "")
	api.pages[""] = &ListResult{
		Upserts: []models.ExternalEvent{
			{ExternalID: "ev-1", Title: "Busy", Start: time.Now(), End: time.Now().Add(time.Hour)},
		},
		NextSyncToken: "tok-1",
	}
	api.mu.Unlock()

	require.NoError(t, m.SyncProvider(context.Background(), "p1"))
	assert.Equal(t, 2, api.callCount())
	require.Len(t, events.applied, 1)
	assert.False(t, providers.get("p1").LastSyncedAt.IsZero())
}

func TestSyncProviderFallsBackOnRejectedToken(t *testing.T) {
	providers := newMemProviderRepo(linkedProvider("p1", "tok-stale"))
	api := newScriptedAPI()
	api.errs["tok-stale"] = ErrSyncTokenRejected
	api.pages[""] = &ListResult{
		Upserts: []models.ExternalEvent{
			{ExternalID: "ev-1", Title: "Busy", Start: time.Now(), End: time.Now().Add(time.Hour)},
			{ExternalID: "ev-2", Title: "Hold", Start: time.Now().Add(2 * time.Hour), End: time.Now().Add(3 * time.Hour)},
		},
		NextSyncToken: "tok-fresh",
	}
	m, events, _, _ := newTestMirror(t, providers, api, true)

	require.NoError(t, m.SyncProvider(context.Background(), "p1"))

	// Full refetch replaces the mirrored set instead of patching it.
	assert.Equal(t, 1, events.replaces)
	assert.Len(t, events.replaced, 2)
	assert.Empty(t, events.applied)
	assert.Equal(t, []string{"tok-stale", ""}, api.calls)
	assert.Equal(t, "tok-fresh", providers.get("p1").CalendarSyncToken)
}

func TestSyncProviderMarksExpiredCredential(t *testing.T) {
	providers := newMemProviderRepo(linkedProvider("p1", ""))
	api := newScriptedAPI()
	m, events, notifier, _ := newTestMirror(t, providers, api, false)

	err := m.SyncProvider(context.Background(), "p1")
	require.ErrorIs(t, err, ErrCredentialExpired)

	assert.Equal(t, models.CalendarLinkExpired, providers.get("p1").CalendarLinkStatus)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "p1", notifier.alerts[0].ProviderID)
	// Mirrored events are left alone; stale data beats silently-empty data.
	assert.Empty(t, events.applied)
	assert.Equal(t, 0, events.replaces)
	assert.Equal(t, 0, api.callCount())
}

func TestSyncProviderRestoresExpiredLinkAfterSuccess(t *testing.T) {
	p := linkedProvider("p1", "")
	p.CalendarLinkStatus = models.CalendarLinkExpired
	providers := newMemProviderRepo(p)
	api := newScriptedAPI()
	api.pages[""] = &ListResult{NextSyncToken: "tok-1"}
	m, _, _, _ := newTestMirror(t, providers, api, true)

	require.NoError(t, m.SyncProvider(context.Background(), "p1"))
	assert.Equal(t, models.CalendarLinkValid, providers.get("p1").CalendarLinkStatus)
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	providers := newMemProviderRepo(linkedProvider("p1", ""), linkedProvider("p2", ""))
	api := newScriptedAPI()
	m, _, _, _ := newTestMirror(t, providers, api, false)
	// p1 has a credential, p2 does not.
	require.NoError(t, m.Creds.SaveCalendarCredential(context.Background(), "p1", &oauth2.Token{AccessToken: "tok"}))

	require.NoError(t, m.SyncAll(context.Background()))

	assert.Equal(t, models.CalendarLinkValid, providers.get("p1").CalendarLinkStatus)
	assert.Equal(t, models.CalendarLinkExpired, providers.get("p2").CalendarLinkStatus)
}
