package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"calmora/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSlotRepo records the range each listing call asked for and serves a
// canned result set.
type stubSlotRepo struct {
	fromDate, toDate string
	listCalls        int
	result           []models.AvailabilitySlot
}

func (s *stubSlotRepo) EnsureMany(ctx context.Context, slots []models.AvailabilitySlot) (int64, error) {
	return 0, nil
}

func (s *stubSlotRepo) HasSlotsOn(ctx context.Context, providerID, date string) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) GetByKey(ctx context.Context, providerID, date, timeOfDay string) (*models.AvailabilitySlot, error) {
	return nil, nil
}

func (s *stubSlotRepo) ListByProviderRange(ctx context.Context, providerID, fromDate, toDate string) ([]models.AvailabilitySlot, error) {
	s.listCalls++
	s.fromDate, s.toDate = fromDate, toDate
	return s.result, nil
}

func (s *stubSlotRepo) PurgeBefore(ctx context.Context, date string, batchSize int) (int64, error) {
	return 0, nil
}

func (s *stubSlotRepo) MarkExternalBlocked(ctx context.Context, providerID, date, timeOfDay string) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) ClearExternalBlock(ctx context.Context, providerID, date, timeOfDay string) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) SetManualBlock(ctx context.Context, providerID, date, timeOfDay string, blocked bool) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) Consume(ctx context.Context, providerID, date, timeOfDay, bookingID string) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) Release(ctx context.Context, providerID, date, timeOfDay, bookingID string) error {
	return nil
}

type stubBookingRepo struct {
	subjectID string
	result    []models.Booking
}

func (s *stubBookingRepo) Create(ctx context.Context, booking *models.Booking) error { return nil }

func (s *stubBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	return nil, nil
}

func (s *stubBookingRepo) FindActiveByKey(ctx context.Context, providerID, date, timeOfDay string) (*models.Booking, error) {
	return nil, nil
}

func (s *stubBookingRepo) Update(ctx context.Context, booking *models.Booking) error { return nil }

func (s *stubBookingRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.Booking, error) {
	s.subjectID = subjectID
	return s.result, nil
}

func testContext(t *testing.T, target string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Params = params
	return c, w
}

func TestGetDaySlotsQueriesWholeDay(t *testing.T) {
	repo := &stubSlotRepo{result: []models.AvailabilitySlot{
		{ProviderID: "prov-1", Date: "2026-09-01", Time: "10:00:00"},
	}}
	hb := &HandlerBundle{Slots: repo}

	c, w := testContext(t, "/", gin.Params{
		{Key: "providerID", Value: "prov-1"},
		{Key: "date", Value: "2026-09-01"},
	})
	hb.GetDaySlots(c)

	require.Equal(t, http.StatusOK, w.Code)
	// The listing range is half-open, so one day spans [date, date+1).
	assert.Equal(t, "2026-09-01", repo.fromDate)
	assert.Equal(t, "2026-09-02", repo.toDate)
	assert.Contains(t, w.Body.String(), "10:00:00")
}

func TestGetDaySlotsRejectsBadDate(t *testing.T) {
	repo := &stubSlotRepo{}
	hb := &HandlerBundle{Slots: repo}

	c, w := testContext(t, "/", gin.Params{
		{Key: "providerID", Value: "prov-1"},
		{Key: "date", Value: "01-09-2026"},
	})
	hb.GetDaySlots(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, repo.listCalls)
}

func TestGetAvailabilityFiltersAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := &stubSlotRepo{result: []models.AvailabilitySlot{
		{ProviderID: "prov-1", Date: "2026-09-01", Time: "09:00:00"},
		{ProviderID: "prov-1", Date: "2026-09-01", Time: "10:00:00", Blocked: true, BlockedReason: models.BlockReasonExternalEvent},
		{ProviderID: "prov-1", Date: "2026-09-01", Time: "11:00:00", BookingID: "bk-1"},
	}}
	hb := &HandlerBundle{Slots: repo, Cache: cache}

	target := "/?from=2026-09-01&to=2026-09-03"
	params := gin.Params{{Key: "providerID", Value: "prov-1"}}

	c, w := testContext(t, target, params)
	hb.GetAvailability(c)

	require.Equal(t, http.StatusOK, w.Code)
	// Inclusive client range becomes a half-open repository range.
	assert.Equal(t, "2026-09-01", repo.fromDate)
	assert.Equal(t, "2026-09-04", repo.toDate)
	// Blocked and consumed slots never reach the client.
	body := w.Body.String()
	assert.Contains(t, body, "09:00:00")
	assert.NotContains(t, body, "10:00:00")
	assert.NotContains(t, body, "11:00:00")

	// A repeat inside the cache TTL is served without touching the repo.
	c2, w2 := testContext(t, target, params)
	hb.GetAvailability(c2)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, 1, repo.listCalls)
}

func TestListSubjectBookings(t *testing.T) {
	repo := &stubBookingRepo{result: []models.Booking{
		{ID: "bk-1", ProviderID: "prov-1", SubjectID: "client-a", Kind: models.KindStandard, Date: "2026-09-01", Time: "10:00:00", Status: models.StatusBooked},
	}}
	hb := &HandlerBundle{Bookings: repo}

	c, w := testContext(t, "/", gin.Params{{Key: "subjectID", Value: "client-a"}})
	hb.ListSubjectBookings(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client-a", repo.subjectID)
	assert.Contains(t, w.Body.String(), "bk-1")
}
