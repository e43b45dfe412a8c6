package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"evcount/internal/capture"
	"evcount/internal/events"
	"evcount/internal/holidays"
	"evcount/internal/ics"
	appLog "evcount/internal/log"
	"evcount/internal/model"
	"evcount/internal/view"
)

// runOneShot performs the actions requested by flags in a fixed order:
// imports and additions first, then exports and the listing.
func (a *app) runOneShot(ctx context.Context, flags flagConfig) error {
	if flags.importIn != "" {
		if err := a.importJSON(flags.importIn); err != nil {
			return err
		}
	}
	if flags.importICS != "" {
		if err := a.importICS(flags.importICS); err != nil {
			return err
		}
	}
	if flags.holidays {
		if err := a.addHolidays(); err != nil {
			return err
		}
	}
	if flags.addName != "" {
		if err := a.addEvent(flags); err != nil {
			return err
		}
	}
	if flags.export != "" {
		err := writeOutput(flags.export, func(w io.Writer) error {
			return events.Export(w, a.events.List())
		})
		if err != nil {
			return err
		}
	}
	if flags.exportICS != "" {
		err := writeOutput(flags.exportICS, func(w io.Writer) error {
			return ics.Export(w, a.events.List(), ics.ExportOptions{
				Hour:    a.conf.ReminderHour,
				Phrases: a.phrases,
			})
		})
		if err != nil {
			return err
		}
	}
	if flags.list {
		if err := a.list(flags.filter); err != nil {
			return err
		}
	}
	if flags.capture {
		opts := a.captureOptions(filepath.Join(a.conf.DataDir, "preview.png"))
		if err := capture.ListPNG(ctx, opts); err != nil {
			return err
		}
		appLog.Info("preview captured", "path", opts.OutputPath)
	}
	return nil
}

func (a *app) list(filter string) error {
	f, err := view.ParseFilter(filter)
	if err != nil {
		return err
	}
	items := view.Project(a.events.List(), f, a.sort.Get(), time.Now(), a.phrases)
	return view.RenderList(os.Stdout, items)
}

func (a *app) addEvent(flags flagConfig) error {
	date, err := model.ParseDate(flags.addDate)
	if err != nil {
		return fmt.Errorf("-add-date: %w", err)
	}
	rem, err := model.ParseReminder(flags.addReminder)
	if err != nil {
		return fmt.Errorf("-add-reminder: %w", err)
	}
	id, err := a.events.Add(model.Event{Name: flags.addName, Date: date, Reminder: rem})
	if err != nil {
		return err
	}
	if rem.Active() {
		a.gate.RequestIfDefault()
	}
	fmt.Fprintln(os.Stdout, id)
	return nil
}

// importJSON stages and confirms in one step; the file replaces every event.
func (a *app) importJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, err := a.events.StageImport(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	n, err := a.events.ConfirmImport(st.Token)
	if err != nil {
		return err
	}
	appLog.Info("events imported", "path", path, "count", n)
	return nil
}

func (a *app) importICS(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	src := ics.Source{ID: filepath.Base(path), URL: path}
	parsed, err := ics.Parse(src, body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	today := model.DateOf(time.Now())
	res, err := ics.Expand(parsed, ics.ExpandConfig{From: today, To: today.AddDays(feedHorizon)})
	if err != nil {
		return err
	}
	if len(res.Truncated) > 0 {
		appLog.Warn("ics expansion truncated", "path", path, "uids", res.Truncated)
	}
	added, err := a.events.Merge(ics.ToEvents(res.Occurrences, ""))
	if err != nil {
		return err
	}
	appLog.Info("ics events merged", "path", path, "added", added)
	return nil
}

func (a *app) addHolidays() error {
	year := time.Now().Year()
	gen, err := holidays.Generate(year, year+1)
	if err != nil {
		return err
	}
	added, err := a.events.Merge(gen)
	if err != nil {
		return err
	}
	appLog.Info("holidays added", "from", year, "to", year+1, "added", added)
	return nil
}

// writeOutput writes to path, or to stdout for "-".
func writeOutput(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
