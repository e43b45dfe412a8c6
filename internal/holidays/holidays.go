// Package holidays generates Dutch public holidays as countdown events.
package holidays

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"evcount/internal/model"
)

// Category is assigned to every generated event.
const Category = "Holiday"

type fixed struct {
	name  string
	month time.Month
	day   int
}

var fixedDays = []fixed{
	{"Nieuwjaarsdag", time.January, 1},
	{"Koningsdag", time.April, 27},
	{"Dodenherdenking", time.May, 4},
	{"Bevrijdingsdag", time.May, 5},
	{"1e Kerstdag", time.December, 25},
	{"2e Kerstdag", time.December, 26},
	{"Oudejaarsdag", time.December, 31},
}

// offsets from Easter Sunday
var movable = []struct {
	name   string
	offset int
}{
	{"Goede Vrijdag", -2},
	{"1e Paasdag", 0},
	{"2e Paasdag", 1},
	{"Hemelvaartsdag", 39},
	{"1e Pinksterdag", 49},
	{"2e Pinksterdag", 50},
}

// Easter returns Easter Sunday of year in the Gregorian calendar
// (anonymous Gregorian computus).
func Easter(year int) model.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return model.Date{Year: year, Month: time.Month(month), Day: day}
}

// Generate returns the holidays of the years from..to inclusive, ordered by
// date. Names carry the year, e.g. "Koningsdag 2025".
func Generate(from, to int) ([]model.Event, error) {
	if to < from {
		return nil, fmt.Errorf("holidays: year range %d..%d is empty", from, to)
	}
	var out []model.Event

	for _, f := range fixedDays {
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:       rrule.YEARLY,
			Dtstart:    time.Date(from, time.January, 1, 0, 0, 0, 0, time.UTC),
			Until:      time.Date(to, time.December, 31, 0, 0, 0, 0, time.UTC),
			Bymonth:    []int{int(f.month)},
			Bymonthday: []int{f.day},
		})
		if err != nil {
			return nil, fmt.Errorf("holidays: %s: %w", f.name, err)
		}
		for _, t := range r.All() {
			out = append(out, holiday(f.name, model.DateOf(t)))
		}
	}

	for y := from; y <= to; y++ {
		easter := Easter(y)
		for _, mv := range movable {
			out = append(out, holiday(mv.name, easter.AddDays(mv.offset)))
		}
	}

	slices.SortStableFunc(out, func(a, b model.Event) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func holiday(name string, d model.Date) model.Event {
	return model.Event{
		Name:     fmt.Sprintf("%s %d", name, d.Year),
		Date:     d,
		Category: Category,
		Icon:     model.IconStar,
		Reminder: model.ReminderOnDay,
	}
}
