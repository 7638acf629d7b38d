package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    ClockTime
		expectError bool
	}{
		{"Morning", "07:00", ClockTime{Hour: 7}, false},
		{"Single digit hour", "7:05", ClockTime{Hour: 7, Minute: 5}, false},
		{"Midnight", "00:00", ClockTime{}, false},
		{"Last minute", "23:59", ClockTime{Hour: 23, Minute: 59}, false},
		{"Surrounding space", " 06:30 ", ClockTime{Hour: 6, Minute: 30}, false},
		{"Hour out of range", "24:00", ClockTime{}, true},
		{"Minute out of range", "12:60", ClockTime{}, true},
		{"Missing minute", "12", ClockTime{}, true},
		{"Seconds", "12:00:00", ClockTime{}, true},
		{"Off", OffTime, ClockTime{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseClockTime(tt.input)
			if tt.expectError {
				assert.Equal(t, ErrInvalid, ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestClockTimeString(t *testing.T) {
	assert.Equal(t, "07:05", ClockTime{Hour: 7, Minute: 5}.String())
	assert.Equal(t, "23:59", ClockTimeOf(time.Date(2024, 1, 1, 23, 59, 42, 0, time.UTC)).String())
}

func TestNextDayKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// DST starts on 2024-03-10 in New York.
	fireAt := time.Date(2024, 3, 9, 7, 0, 0, 0, loc)
	next := NextDay(fireAt, fireAt.Add(time.Minute))
	assert.Equal(t, time.Date(2024, 3, 10, 7, 0, 0, 0, loc), next)
	assert.Equal(t, 23*time.Hour, next.Sub(fireAt))
}

func TestNextDaySkipsMissedDays(t *testing.T) {
	fireAt := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 13, 7, 0, 0, 0, time.UTC), NextDay(fireAt, now))
}

func TestScheduleTimeOfDay(t *testing.T) {
	assert.Equal(t, OffTime, Schedule{}.TimeOfDay())
	s := Schedule{FireAt: time.Date(2024, 3, 10, 6, 15, 0, 0, time.UTC), Active: true}
	assert.Equal(t, "06:15", s.TimeOfDay())
}
