package alarm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OffTime is persisted under alarm_time when no alarm is scheduled.
const OffTime = "OFF"

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return ClockTime{}, Errorf(ErrInvalid, "expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, Errorf(ErrInvalid, "invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, Errorf(ErrInvalid, "invalid minute in %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ClockTimeOf returns the time of day of t.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// NextFireAt returns the first instant at c strictly after now, in now's
// location. A time at or before now rolls over to the same time tomorrow.
func NextFireAt(now time.Time, c ClockTime) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// NextDay advances fireAt by whole days until it lies after now. The wall
// clock time of fireAt is kept across DST changes.
func NextDay(fireAt, now time.Time) time.Time {
	next := fireAt.AddDate(0, 0, 1)
	for !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Schedule is the armed state of the single alarm.
type Schedule struct {
	FireAt time.Time `json:"fire_at"`
	Active bool      `json:"active"`
}

// TimeOfDay returns "HH:MM", or OffTime when FireAt is unset.
func (s Schedule) TimeOfDay() string {
	if s.FireAt.IsZero() {
		return OffTime
	}
	return ClockTimeOf(s.FireAt).String()
}
