package apptime

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// TimestampLayout is the storage format of like timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	locationMu sync.RWMutex
	location   = time.UTC
)

// SetLocation sets the application timezone used by SystemClock.
func SetLocation(name string) error {
	tz := strings.TrimSpace(name)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("load location %q: %w", tz, err)
	}
	locationMu.Lock()
	location = loc
	locationMu.Unlock()
	return nil
}

// Location returns the configured timezone.
func Location() *time.Location {
	locationMu.RLock()
	loc := location
	locationMu.RUnlock()
	return loc
}

// Clock supplies the current time.
type Clock interface {
	Now() (time.Time, error)
}

// SystemClock reads the wall clock in the configured timezone.
type SystemClock struct{}

var errZeroTime = errors.New("system clock returned zero time")

// Now returns the current time.
func (SystemClock) Now() (time.Time, error) {
	now := time.Now().In(Location())
	if now.IsZero() {
		return time.Time{}, errZeroTime
	}
	return now, nil
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() (time.Time, error)

// Now calls f.
func (f ClockFunc) Now() (time.Time, error) { return f() }

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() (time.Time, error) { return t, nil })
}

// FormatTimestamp renders t as "YYYY-MM-DD HH:MM:SS" in its own location.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a "YYYY-MM-DD HH:MM:SS" string in the configured timezone.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(value), Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %s", value)
	}
	return t, nil
}

// FromUnix converts a unix timestamp into the configured timezone.
// Zero falls back to now, matching rows imported without a dateline.
func FromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Now().In(Location())
	}
	return time.Unix(sec, 0).In(Location())
}
