// Package notify delivers reminder notifications to local sinks and holds the
// persisted permission that gates them.
package notify

import (
	"context"
	"errors"

	appLog "evcount/internal/log"
)

// Notification is the platform-neutral payload of one reminder.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier is a delivery sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	appLog.Info("reminder", "title", n.Title, "body", n.Body)
	return nil
}

// Multi fans a notification out to every sink. All sinks are attempted; the
// returned error joins individual failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
