// Package dates computes an event's temporal status and countdown relative to
// an explicit "now". Nothing here reads the system clock.
package dates

import (
	"time"

	"evcount/internal/model"
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusToday    Status = "today"
	StatusPast     Status = "past"
)

// DiffDays returns the number of calendar days from now's local date to d.
// Positive means d is in the future. Time of day is ignored on both sides.
//
// The difference is taken on calendar components rather than on instants, so
// a 23h or 25h DST day still counts as exactly one day. Unix seconds are used
// instead of time.Duration, which saturates after about 292 years.
func DiffDays(d model.Date, now time.Time) int {
	today := model.DateOf(now)
	a := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(today.Year, today.Month, today.Day, 0, 0, 0, 0, time.UTC)
	return int((a.Unix() - b.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// EventStatus classifies d as upcoming, today or past relative to now.
func EventStatus(d model.Date, now time.Time) Status {
	return statusOf(DiffDays(d, now))
}

// Countdown returns the magnitude of the day difference together with the
// status, e.g. (3, upcoming), (0, today), (2, past).
func Countdown(d model.Date, now time.Time) (days int, status Status) {
	diff := DiffDays(d, now)
	if diff < 0 {
		return -diff, statusOf(diff)
	}
	return diff, statusOf(diff)
}

func statusOf(diff int) Status {
	switch {
	case diff > 0:
		return StatusUpcoming
	case diff == 0:
		return StatusToday
	default:
		return StatusPast
	}
}

// ParseStatus accepts the three status names.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusUpcoming, StatusToday, StatusPast:
		return Status(s), true
	}
	return "", false
}
