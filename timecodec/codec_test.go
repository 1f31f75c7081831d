package timecodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHMS24(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"2:30 PM", "14:30:00"},
		{"2:30 pm", "14:30:00"},
		{"12:00 AM", "00:00:00"},
		{"12:00 PM", "12:00:00"},
		{"09:15", "09:15:00"},
		{"9:15", "09:15:00"},
		{"23:45:30", "23:45:30"},
		{" 8:05 AM ", "08:05:00"},
		{"11:59PM", "23:59:00"},
	}
	for _, c := range cases {
		got, err := ToHMS24(c.input)
		require.NoError(t, err, "input %q", c.input)
		assert.Equal(t, c.want, got, "input %q", c.input)
	}
}

func TestToHMS24Invalid(t *testing.T) {
	for _, input := range []string{"", "noon", "25:00", "13:60", "2:30 XM", "14:30 PM PM"} {
		_, err := ToHMS24(input)
		assert.ErrorIs(t, err, ErrInvalidTimeFormat, "input %q", input)
	}
}

func TestToDisplay12h(t *testing.T) {
	got, err := ToDisplay12h("14:30:00")
	require.NoError(t, err)
	assert.Equal(t, "2:30 PM", got)

	got, err = ToDisplay12h("00:05:00")
	require.NoError(t, err)
	assert.Equal(t, "12:05 AM", got)

	_, err = ToDisplay12h("half past two")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestMinutesOfDay(t *testing.T) {
	got, err := MinutesOfDay("00:00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = MinutesOfDay("14:30:00")
	require.NoError(t, err)
	assert.Equal(t, 870, got)

	_, err = MinutesOfDay("25:00:00")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestAddMinutes(t *testing.T) {
	got, err := AddMinutes("10:00:00", 60)
	require.NoError(t, err)
	assert.Equal(t, "11:00:00", got)

	got, err = AddMinutes("10:30:00", -30)
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", got)

	// Seconds survive the round trip.
	got, err = AddMinutes("10:00:30", 15)
	require.NoError(t, err)
	assert.Equal(t, "10:15:30", got)
}

func TestAddMinutesDayBoundary(t *testing.T) {
	_, err := AddMinutes("23:30:00", 60)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = AddMinutes("00:15:00", -30)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	// Landing exactly on midnight crosses into the next day.
	_, err = AddMinutes("23:00:00", 60)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestDateHelpers(t *testing.T) {
	require.NoError(t, Init("Asia/Kolkata"))

	d, err := AddDays("2026-08-31", 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", d)

	d, err = AddDays("2026-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", d)

	_, err = ParseDate("31-08-2026")
	assert.ErrorIs(t, err, ErrInvalidDate)

	at, err := At("2026-08-31", "14:30:00")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", at.Location().String())
	assert.Equal(t, 14, at.Hour())
	assert.Equal(t, 30, at.Minute())
}

func TestOverlapsHalfOpen(t *testing.T) {
	require.NoError(t, Init("Asia/Kolkata"))

	event := func(from, to string) (time.Time, time.Time) {
		s, err := At("2026-08-31", from)
		require.NoError(t, err)
		e, err := At("2026-08-31", to)
		require.NoError(t, err)
		return s, e
	}

	es, ee := event("13:00:00", "14:00:00")

	ss, se, err := SlotInterval("2026-08-31", "13:30:00", time.Hour)
	require.NoError(t, err)
	assert.True(t, Overlaps(es, ee, ss, se))

	// Touching boundaries do not overlap: [13:00,14:00) vs [14:00,15:00).
	ss, se, err = SlotInterval("2026-08-31", "14:00:00", time.Hour)
	require.NoError(t, err)
	assert.False(t, Overlaps(es, ee, ss, se))

	// Sub-hour event fully inside a slot.
	es, ee = event("13:40:00", "13:50:00")
	ss, se, err = SlotInterval("2026-08-31", "13:00:00", time.Hour)
	require.NoError(t, err)
	assert.True(t, Overlaps(es, ee, ss, se))
}
