package domain

import (
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock face in minutes after midnight.
// Day rollover is not tracked: 23:30 plus 90 minutes is 01:00.
type Clock int

// ParseClock parses a 24-hour "HH:MM" string. A single-digit hour is accepted.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, NewValidationError("startTime", fmt.Sprintf("%q is not a HH:MM time", s))
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// Add moves the clock forward, wrapping around midnight.
func (c Clock) Add(minutes int) Clock {
	m := (int(c) + minutes) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return Clock(m)
}

// String formats the clock as zero-padded 24-hour "HH:MM".
func (c Clock) String() string {
	m := int(c.Add(0))
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
