package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"evcount/internal/capture"
	"evcount/internal/ics"
	appLog "evcount/internal/log"
	"evcount/internal/model"
	"evcount/internal/notify"
	"evcount/internal/reminder"
	"evcount/internal/web"
)

// feedSyncSpec is how often subscribed ICS feeds are re-read.
const feedSyncSpec = "@hourly"

// feedHorizon is how far ahead feed occurrences are imported.
const feedHorizon = 365

func (a *app) notifier() notify.Notifier {
	var sinks notify.Multi
	if a.conf.Notifications.Log {
		sinks = append(sinks, notify.LogNotifier{})
	}
	if pin := a.conf.Notifications.GPIOPin; pin != "" {
		g, err := notify.NewGPIONotifier(pin, a.conf.Notifications.GPIOPulse)
		if err != nil {
			appLog.Warn("gpio notifier disabled", "pin", pin, "error", err)
		} else {
			sinks = append(sinks, g)
		}
	}
	return sinks
}

func (a *app) runDaemon(ctx context.Context) error {
	sched, err := reminder.New(reminder.Options{
		Store:      a.store,
		Notifier:   a.notifier(),
		Permission: a.gate,
		Phrases:    a.phrases,
		Hour:       a.conf.ReminderHour,
	})
	if err != nil {
		return fmt.Errorf("reminder scheduler: %w", err)
	}
	defer sched.Close()

	reconcile := func(evs []model.Event) {
		p := sched.Reconcile(evs, time.Now())
		appLog.Debug("reminders reconciled",
			"armed", p.Armed, "cancelled", p.Cancelled, "missed", p.Missed,
			"pruned", p.Pruned, "blocked", p.Blocked)
	}
	a.events.Subscribe(reconcile)
	reconcileNow := func() { a.events.WithSnapshot(reconcile) }
	reconcileNow()

	c := cron.New()
	if _, err := c.AddFunc(a.conf.Reconcile, reconcileNow); err != nil {
		return fmt.Errorf("reconcile job: %w", err)
	}

	var jobs sync.WaitGroup
	if len(a.conf.ICSFeeds) > 0 {
		fetcher := ics.NewFetcher(a.store, nil)
		syncFeeds := func() { a.syncFeeds(ctx, fetcher) }
		if _, err := c.AddFunc(feedSyncSpec, syncFeeds); err != nil {
			return fmt.Errorf("feed sync job: %w", err)
		}
		jobs.Go(syncFeeds)
	}

	previewPath := ""
	if a.conf.Capture.Enabled {
		previewPath = filepath.Join(a.conf.DataDir, "preview.png")
		opts := a.captureOptions(previewPath)
		_, err := c.AddFunc(a.conf.Capture.Cron, func() {
			if err := capture.ListPNG(ctx, opts); err != nil {
				appLog.Error("capture failed", err, "url", opts.URL)
				return
			}
			appLog.Info("preview captured", "path", opts.OutputPath)
		})
		if err != nil {
			return fmt.Errorf("capture job: %w", err)
		}
	}

	c.Start()
	defer func() {
		<-c.Stop().Done()
		jobs.Wait()
	}()

	srv := web.NewServer(web.Deps{
		Config:             a.conf,
		Events:             a.events,
		Sort:               a.sort,
		Gate:               a.gate,
		Reminders:          sched,
		Phrases:            a.phrases,
		PreviewPath:        previewPath,
		OnPermissionChange: reconcileNow,
	})
	err = srv.ListenAndServe(ctx)
	appLog.Info("shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// syncFeeds merges upcoming occurrences from every configured feed.
func (a *app) syncFeeds(ctx context.Context, f *ics.Fetcher) {
	today := model.DateOf(time.Now())
	cfg := ics.ExpandConfig{From: today, To: today.AddDays(feedHorizon)}

	for _, feed := range a.conf.ICSFeeds {
		src := ics.Source{ID: feed.ID, URL: feed.URL}
		evs, err := ics.Collect(ctx, f, []ics.Source{src}, cfg, feed.Category)
		if err != nil {
			appLog.Warn("ics feed incomplete", "id", feed.ID, "error", err)
		}
		if len(evs) == 0 {
			continue
		}
		added, err := a.events.Merge(evs)
		if err != nil {
			appLog.Error("ics merge failed", err, "id", feed.ID)
			continue
		}
		if added > 0 {
			appLog.Info("ics events merged", "id", feed.ID, "added", added)
		}
	}
}

func (a *app) captureOptions(out string) capture.Options {
	target := a.conf.Capture.URL
	if target == "" {
		host, port, err := net.SplitHostPort(a.conf.Listen)
		if err != nil {
			host, port = a.conf.Listen, "80"
		}
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		target = "http://" + net.JoinHostPort(host, port) + "/?filter=upcoming"
	}
	return capture.Options{
		URL:        target,
		OutputPath: out,
		Width:      a.conf.Capture.Width,
		Height:     a.conf.Capture.Height,
	}
}
