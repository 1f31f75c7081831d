package calendar

import (
	"net/http"
	"testing"
	"time"

	"calmora/timecodec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func TestEventTimeResolvesAllDayInOperatingZone(t *testing.T) {
	require.NoError(t, timecodec.Init("Asia/Kolkata"))
	t.Cleanup(func() { require.NoError(t, timecodec.Init("UTC")) })

	got, ok := eventTime(&calendarapi.EventDateTime{Date: "2026-09-01"})
	require.True(t, ok)
	// All-day bounds are midnight in the operating zone, not UTC, so they
	// overlap the same slot instants the reconciler builds.
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, timecodec.Location())
	assert.True(t, got.Equal(want), "got %v, want %v", got, want)
	assert.NotEqual(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestEventTimeKeepsTimedEventOffset(t *testing.T) {
	got, ok := eventTime(&calendarapi.EventDateTime{DateTime: "2026-09-01T10:00:00+05:30"})
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2026, 9, 1, 4, 30, 0, 0, time.UTC)))
}

func TestEventTimeMissingBounds(t *testing.T) {
	_, ok := eventTime(nil)
	assert.False(t, ok)
	_, ok = eventTime(&calendarapi.EventDateTime{})
	assert.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusGone}), ErrSyncTokenRejected)
	assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusUnauthorized}), ErrCredentialExpired)
	assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusForbidden}), ErrCredentialExpired)
	assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusInternalServerError}), ErrSyncTransport)
}
