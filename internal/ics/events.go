package ics

import (
	"context"
	"errors"

	appLog "evcount/internal/log"
	"evcount/internal/model"
)

// ToEvents maps occurrences to countdown events for events.Manager.Merge.
// Occurrences without a summary are dropped. Ids are assigned on merge.
func ToEvents(occs []Occurrence, category string) []model.Event {
	out := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		if o.Summary == "" {
			continue
		}
		ev := model.Event{
			Name:     o.Summary,
			Date:     o.Date,
			Time:     o.Time,
			Category: category,
		}
		ev.Normalize()
		out = append(out, ev)
	}
	return out
}

// Collect fetches, parses and expands every source, returning the combined
// events. Sources that fail are skipped and reported in the joined error.
func Collect(ctx context.Context, f *Fetcher, sources []Source, cfg ExpandConfig, category string) ([]model.Event, error) {
	results, errs := f.FetchAll(ctx, sources)

	var out []model.Event
	for _, res := range results {
		parsed, err := Parse(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		exp, err := Expand(parsed, cfg)
		if err != nil {
			return nil, err
		}
		evs := ToEvents(exp.Occurrences, category)
		appLog.Info("ics feed collected", "id", res.Source.ID, "events", len(evs), "from_cache", res.FromCache)
		out = append(out, evs...)
	}
	return out, errors.Join(errs...)
}
