package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-07-01")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.Year != 2025 || d.Month != time.July || d.Day != 1 {
		t.Errorf("expected 2025-07-01, got %+v", d)
	}

	for _, bad := range []string{"", "2025-7-1", "2025-02-30", "tomorrow", "2025-07-01T00:00"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestDateAddDaysCrossesMonths(t *testing.T) {
	if got := MustDate("2025-03-01").AddDays(-1); got != MustDate("2025-02-28") {
		t.Errorf("expected 2025-02-28, got %s", got)
	}
	if got := MustDate("2024-12-31").AddDays(7); got != MustDate("2025-01-07") {
		t.Errorf("expected 2025-01-07, got %s", got)
	}
}

func TestEventJSON(t *testing.T) {
	in := `{"id":"x","name":"Trip","date":"2025-07-01","icon":"plane","reminder":"1-week-before"}`
	var ev Event
	if err := json.Unmarshal([]byte(in), &ev); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if ev.Icon != IconPlane || ev.Reminder != ReminderWeekBefore || ev.Date != MustDate("2025-07-01") {
		t.Errorf("unexpected event %+v", ev)
	}

	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"icon":"Plane"`) || !strings.Contains(string(out), `"date":"2025-07-01"`) {
		t.Errorf("unexpected JSON %s", out)
	}
}

func TestEventJSONRejectsUnknownEnums(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(`{"name":"A","date":"2025-01-01","reminder":"hourly"}`), &ev); !errors.Is(err, ErrInvalidReminder) {
		t.Errorf("expected ErrInvalidReminder, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"name":"A","date":"2025-01-01","icon":"Rocket"}`), &ev); !errors.Is(err, ErrInvalidIcon) {
		t.Errorf("expected ErrInvalidIcon, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"name":"A","date":"01/01/2025"}`), &ev); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	ev := Event{Name: "  Party ", Date: MustDate("2025-05-05")}
	ev.Normalize()
	if ev.Name != "Party" || ev.Category != GeneralCategory || ev.Icon != IconCalendar || ev.Reminder != ReminderNone {
		t.Errorf("unexpected defaults %+v", ev)
	}

	bday := Event{Name: "Mum", Date: MustDate("2025-05-05"), Category: "Birthday"}
	bday.Normalize()
	if bday.Icon != IconCake {
		t.Errorf("expected birthday icon Cake, got %s", bday.Icon)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
		want error
	}{
		{"missing name", Event{Date: MustDate("2025-01-01")}, ErrMissingName},
		{"missing date", Event{Name: "A"}, ErrMissingDate},
		{"bad time", Event{Name: "A", Date: MustDate("2025-01-01"), Time: "25:00"}, ErrInvalidTime},
		{"bad reminder", Event{Name: "A", Date: MustDate("2025-01-01"), Reminder: "later"}, ErrInvalidReminder},
		{"ok", Event{Name: "A", Date: MustDate("2025-01-01"), Time: "09:30"}, nil},
	}
	for _, tc := range cases {
		err := tc.ev.Validate()
		if tc.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLeadDays(t *testing.T) {
	want := map[Reminder]int{ReminderOnDay: 0, ReminderDayBefore: 1, ReminderTwoDays: 2, ReminderWeekBefore: 7}
	for r, days := range want {
		got, ok := r.LeadDays()
		if !ok || got != days {
			t.Errorf("%s: expected %d, got %d (ok=%v)", r, days, got, ok)
		}
	}
	if ReminderNone.Active() {
		t.Error("expected none to be inactive")
	}
}

func TestIconsAreClosed(t *testing.T) {
	for _, icon := range Icons() {
		if !icon.Valid() {
			t.Errorf("icon %d should be valid", icon)
		}
		parsed, err := ParseIcon(icon.String())
		if err != nil || parsed != icon {
			t.Errorf("ParseIcon(%q): expected %d, got %d (%v)", icon.String(), icon, parsed, err)
		}
		if icon.Glyph() == "" {
			t.Errorf("icon %s has no glyph", icon)
		}
	}
	if Icon(200).Valid() {
		t.Error("expected out-of-range icon to be invalid")
	}
	if _, err := Icon(200).MarshalText(); !errors.Is(err, ErrInvalidIcon) {
		t.Errorf("expected ErrInvalidIcon, got %v", err)
	}
}
