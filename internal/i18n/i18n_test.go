package i18n

import (
	"testing"

	"evcount/internal/dates"
	"evcount/internal/model"
)

func TestLeadPhrases(t *testing.T) {
	en := For("en")
	want := map[model.Reminder]string{
		model.ReminderOnDay:      "today",
		model.ReminderDayBefore:  "tomorrow",
		model.ReminderTwoDays:    "in 2 days",
		model.ReminderWeekBefore: "in a week",
		model.ReminderNone:       "",
	}
	for r, phrase := range want {
		if got := en.LeadPhrase(r); got != phrase {
			t.Errorf("%s: expected %q, got %q", r, phrase, got)
		}
	}
	if got := For("nl").LeadPhrase(model.ReminderTwoDays); got != "over 2 dagen" {
		t.Errorf("expected dutch phrase, got %q", got)
	}
}

func TestBody(t *testing.T) {
	if got := For("EN").Body("Trip", model.ReminderWeekBefore); got != "Trip is in a week!" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestCountdown(t *testing.T) {
	en := For("")
	cases := []struct {
		days   int
		status dates.Status
		want   string
	}{
		{3, dates.StatusUpcoming, "3 DAYS"},
		{1, dates.StatusUpcoming, "1 DAY"},
		{0, dates.StatusToday, "TODAY"},
		{1, dates.StatusPast, "1 DAY AGO"},
		{2, dates.StatusPast, "2 DAYS AGO"},
	}
	for _, tc := range cases {
		if got := en.Countdown(tc.days, tc.status); got != tc.want {
			t.Errorf("Countdown(%d, %s): expected %q, got %q", tc.days, tc.status, tc.want, got)
		}
	}
}

func TestFallbackToEnglish(t *testing.T) {
	if For("fr").ReminderTitle != "Event reminder" {
		t.Error("expected English fallback")
	}
	if Supported("fr") || !Supported("nl") {
		t.Error("unexpected Supported result")
	}
}
