package dates

import (
	"testing"
	"time"

	"evcount/internal/model"
)

func TestEventStatus(t *testing.T) {
	now := time.Date(2025, 6, 20, 23, 59, 0, 0, time.Local)

	cases := []struct {
		date string
		want Status
		days int
	}{
		{"2025-06-21", StatusUpcoming, 1},
		{"2025-07-01", StatusUpcoming, 11},
		{"2025-06-20", StatusToday, 0},
		{"2025-06-19", StatusPast, 1},
		{"2024-06-20", StatusPast, 365},
	}
	for _, tc := range cases {
		d := model.MustDate(tc.date)
		if got := EventStatus(d, now); got != tc.want {
			t.Errorf("EventStatus(%s): expected %s, got %s", tc.date, tc.want, got)
		}
		days, status := Countdown(d, now)
		if days != tc.days || status != tc.want {
			t.Errorf("Countdown(%s): expected (%d, %s), got (%d, %s)", tc.date, tc.days, tc.want, days, status)
		}
	}
}

func TestTodayIffSameCalendarDate(t *testing.T) {
	d := model.MustDate("2025-03-10")
	for _, now := range []time.Time{
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local),
		time.Date(2025, 3, 10, 12, 30, 0, 0, time.Local),
		time.Date(2025, 3, 10, 23, 59, 59, 0, time.Local),
	} {
		if got := EventStatus(d, now); got != StatusToday {
			t.Errorf("at %s: expected today, got %s", now, got)
		}
	}
	if got := EventStatus(d, time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local)); got != StatusPast {
		t.Errorf("expected past right after midnight, got %s", got)
	}
	if got := EventStatus(d, time.Date(2025, 3, 9, 23, 59, 0, 0, time.Local)); got != StatusUpcoming {
		t.Errorf("expected upcoming right before midnight, got %s", got)
	}
}

func TestDiffDaysAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-10-26 has 25 hours in Amsterdam.
	now := time.Date(2025, 10, 26, 8, 0, 0, 0, loc)
	if got := DiffDays(model.MustDate("2025-10-27"), now); got != 1 {
		t.Errorf("expected 1 day across fall-back, got %d", got)
	}
	// 2025-03-30 has 23 hours.
	now = time.Date(2025, 3, 30, 8, 0, 0, 0, loc)
	if got := DiffDays(model.MustDate("2025-03-31"), now); got != 1 {
		t.Errorf("expected 1 day across spring-forward, got %d", got)
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus("today"); !ok || s != StatusToday {
		t.Errorf("expected today, got %q (%v)", s, ok)
	}
	if _, ok := ParseStatus("soon"); ok {
		t.Error("expected soon to be rejected")
	}
}

func TestCountdownFarFromNow(t *testing.T) {
	now := time.Date(2025, 6, 20, 8, 0, 0, 0, time.Local)

	cases := []struct {
		date string
		want Status
		days int
	}{
		{"2500-01-01", StatusUpcoming, 173320},
		{"9999-12-31", StatusUpcoming, 2912637},
		{"0001-01-01", StatusPast, 739421},
	}
	for _, tc := range cases {
		days, status := Countdown(model.MustDate(tc.date), now)
		if days != tc.days || status != tc.want {
			t.Errorf("Countdown(%s): expected (%d, %s), got (%d, %s)", tc.date, tc.days, tc.want, days, status)
		}
	}
}
