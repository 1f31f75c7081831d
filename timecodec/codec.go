package timecodec

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidTimeFormat is returned for any unrecognized time input.
	// Unparsable input always fails; it is never substituted with midnight.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	// ErrInvalidDuration is returned when minute arithmetic would cross a day boundary.
	ErrInvalidDuration = errors.New("invalid duration: crosses day boundary")
	// ErrInvalidDate is returned for malformed calendar dates.
	ErrInvalidDate = errors.New("invalid date format")
)

const (
	dateLayout = "2006-01-02"
	hmsLayout  = "15:04:05"
)

// zone is the fixed operating timezone. All date arithmetic runs here,
// never in the caller's local timezone, to avoid off-by-one-day slot rows.
var zone = time.UTC

// Init loads the operating timezone by IANA name.
func Init(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("timecodec: unknown timezone %q: %w", name, err)
	}
	zone = loc
	return nil
}

// Location returns the operating timezone.
func Location() *time.Location {
	return zone
}

var inputLayouts = []string{hmsLayout, "15:04", "3:04 PM", "3:04PM"}

// ToHMS24 normalizes a time-of-day string to "HH:MM:SS". Accepted inputs are
// "HH:MM", "HH:MM:SS" and "H:MM AM/PM" (case-insensitive).
func ToHMS24(input string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	for _, layout := range inputLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Format(hmsLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, input)
}

// ToDisplay12h formats an "HH:MM:SS" time as "H:MM AM/PM".
func ToDisplay12h(hms string) (string, error) {
	t, err := time.Parse(hmsLayout, hms)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hms)
	}
	return t.Format("3:04 PM"), nil
}

// MinutesOfDay converts an "HH:MM:SS" time to minutes from midnight.
func MinutesOfDay(hms string) (int, error) {
	t, err := time.Parse(hmsLayout, hms)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hms)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// AddMinutes adds n minutes to an "HH:MM:SS" time. The result must stay within
// the same clock day; arithmetic that would cross midnight fails with
// ErrInvalidDuration rather than silently wrapping.
func AddMinutes(hms string, n int) (string, error) {
	t, err := time.Parse(hmsLayout, hms)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hms)
	}
	mins, err := MinutesOfDay(hms)
	if err != nil {
		return "", err
	}
	total := mins + n
	if total < 0 || total >= 24*60 {
		return "", fmt.Errorf("%w: %q %+d minutes", ErrInvalidDuration, hms, n)
	}
	return time.Date(0, 1, 1, total/60, total%60, t.Second(), 0, time.UTC).Format(hmsLayout), nil
}

// Today returns the current date in the operating timezone as "YYYY-MM-DD".
func Today() string {
	return time.Now().In(zone).Format(dateLayout)
}

// ParseDate parses a "YYYY-MM-DD" date to midnight in the operating timezone.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, date, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// AddDays shifts a "YYYY-MM-DD" date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(dateLayout), nil
}

// At resolves a (date, time-of-day) pair to an absolute instant in the
// operating timezone.
func At(date, hms string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(hmsLayout, hms)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hms)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone), nil
}

// SlotInterval resolves a slot's half-open [start, end) interval as absolute
// instants, where end = start + dur.
func SlotInterval(date, hms string, dur time.Duration) (time.Time, time.Time, error) {
	start, err := At(date, hms)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(dur), nil
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect: s1 < e2 && s2 < e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
