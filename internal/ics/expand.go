package ics

import (
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "evcount/internal/log"
	"evcount/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is where timed occurrences get their calendar date.
	// Nil means time.Local.
	Location *time.Location

	// From and To are inclusive calendar dates.
	From model.Date
	To   model.Date

	// MaxOccurrencesPerEvent caps a single series. Zero uses the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one dated instance of a feed event.
type Occurrence struct {
	SourceID string
	UID      string
	Summary  string
	Date     model.Date
	// Time is "HH:MM" for timed instances, empty for all-day ones.
	Time string
}

type ExpandResult struct {
	Occurrences []Occurrence
	// Truncated lists UIDs that hit the per-event cap.
	Truncated []string
}

// Expand turns parsed events into dated occurrences within the configured
// range. RRULE series honor EXDATE and RECURRENCE-ID overrides.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var res ExpandResult
	if cfg.From.IsZero() || cfg.To.IsZero() {
		return res, errors.New("ics: expand range is not set")
	}
	if cfg.To.Before(cfg.From) {
		return res, errors.New("ics: expand range ends before it starts")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overrides := make(map[string][]ParsedEvent)
	var bases []ParsedEvent
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			bases = append(bases, ev)
		}
	}

	for _, ev := range bases {
		occ, hitCap := expandEvent(ev, overrides[ev.UID], cfg)
		res.Occurrences = append(res.Occurrences, occ...)
		if hitCap {
			res.Truncated = append(res.Truncated, ev.UID)
			appLog.Warn("ics expansion truncated", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	slices.SortStableFunc(res.Occurrences, func(a, b Occurrence) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if a.Time != b.Time {
			if a.Time < b.Time {
				return -1
			}
			return 1
		}
		return 0
	})
	return res, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if o, ok := findOverride(overrides, ev.Start); ok {
			ev = withOverride(ev, o)
		}
		occ := occurrenceOf(ev, ev.Start, cfg.Location)
		if inRange(occ.Date, cfg) {
			return []Occurrence{occ}, false
		}
		return nil, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen by a day on each side; the precise cut happens on calendar dates.
	loc := ev.Start.Location()
	after := cfg.From.AddDays(-1).Midnight(loc)
	before := cfg.To.AddDays(2).Midnight(loc)

	var out []Occurrence
	hitCap := false
	for _, start := range set.Between(after, before, true) {
		inst := ev
		if o, ok := findOverride(overrides, start); ok {
			inst = withOverride(ev, o)
			start = o.Start
		}
		occ := occurrenceOf(inst, start, cfg.Location)
		if !inRange(occ.Date, cfg) {
			continue
		}
		if len(out) == cfg.MaxOccurrencesPerEvent {
			hitCap = true
			break
		}
		out = append(out, occ)
	}
	return out, hitCap
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func withOverride(base, o ParsedEvent) ParsedEvent {
	base.Start = o.Start
	base.End = o.End
	base.AllDay = o.AllDay
	if o.Summary != "" {
		base.Summary = o.Summary
	}
	return base
}

// occurrenceOf dates an instance. All-day instances keep their own calendar
// date; timed ones are converted to loc first.
func occurrenceOf(ev ParsedEvent, start time.Time, loc *time.Location) Occurrence {
	occ := Occurrence{SourceID: ev.Source.ID, UID: ev.UID, Summary: ev.Summary}
	if ev.AllDay {
		occ.Date = model.DateOf(start)
		return occ
	}
	local := start.In(loc)
	occ.Date = model.DateOf(local)
	occ.Time = local.Format("15:04")
	return occ
}

func inRange(d model.Date, cfg ExpandConfig) bool {
	return !d.Before(cfg.From) && !cfg.To.Before(d)
}
