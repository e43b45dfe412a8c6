package holidays

import (
	"testing"
	"time"

	"github.com/teambition/rrule-go"

	"evcount/internal/model"
)

func TestEasterKnownYears(t *testing.T) {
	for year, want := range map[int]string{
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
		2038: "2038-04-25",
	} {
		if got := Easter(year).String(); got != want {
			t.Errorf("Easter(%d): expected %s, got %s", year, want, got)
		}
	}
}

func TestEasterMatchesRRule(t *testing.T) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.YEARLY,
		Dtstart:  time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
		Until:    time.Date(2060, time.December, 31, 0, 0, 0, 0, time.UTC),
		Byeaster: []int{0},
	})
	if err != nil {
		t.Fatalf("NewRRule failed: %v", err)
	}
	for _, ts := range r.All() {
		want := model.DateOf(ts)
		if got := Easter(ts.Year()); got != want {
			t.Errorf("Easter(%d): expected %s, got %s", ts.Year(), want, got)
		}
	}
}

func TestGenerate2025(t *testing.T) {
	evs, err := Generate(2025, 2025)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(evs) != len(fixedDays)+len(movable) {
		t.Fatalf("expected %d holidays, got %d", len(fixedDays)+len(movable), len(evs))
	}

	byName := make(map[string]model.Event, len(evs))
	for _, ev := range evs {
		byName[ev.Name] = ev
		if ev.Category != Category || ev.Icon != model.IconStar || ev.Reminder != model.ReminderOnDay {
			t.Errorf("unexpected attributes on %+v", ev)
		}
	}
	for name, want := range map[string]string{
		"Nieuwjaarsdag 2025":  "2025-01-01",
		"Koningsdag 2025":     "2025-04-27",
		"Goede Vrijdag 2025":  "2025-04-18",
		"1e Paasdag 2025":     "2025-04-20",
		"2e Paasdag 2025":     "2025-04-21",
		"Hemelvaartsdag 2025": "2025-05-29",
		"1e Pinksterdag 2025": "2025-06-08",
		"2e Pinksterdag 2025": "2025-06-09",
		"Oudejaarsdag 2025":   "2025-12-31",
	} {
		ev, ok := byName[name]
		if !ok {
			t.Errorf("missing %s", name)
			continue
		}
		if ev.Date.String() != want {
			t.Errorf("%s: expected %s, got %s", name, want, ev.Date)
		}
	}

	for i := 1; i < len(evs); i++ {
		if evs[i].Date.Before(evs[i-1].Date) {
			t.Fatalf("expected date order, %s before %s", evs[i].Date, evs[i-1].Date)
		}
	}
}

func TestGenerateRange(t *testing.T) {
	evs, err := Generate(2025, 2026)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(evs) != 2*(len(fixedDays)+len(movable)) {
		t.Errorf("expected two years of holidays, got %d", len(evs))
	}
	if _, err := Generate(2026, 2025); err == nil {
		t.Error("expected error for inverted range")
	}
}
