// Package reminder turns the event collection into in-process notification
// timers, delivering each reminder instance at most once.
//
// Timers live only as long as the Scheduler. A reminder whose fire time has
// already passed when it is first observed is skipped for good; there is no
// catch-up after a restart.
package reminder

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"evcount/internal/i18n"
	appLog "evcount/internal/log"
	"evcount/internal/model"
	"evcount/internal/notify"
	"evcount/internal/store"
)

// DefaultHour is the local hour at which reminders fire.
const DefaultHour = 9

const defaultDeliveryTimeout = 30 * time.Second

// Key identifies one potential delivery. Changing an event's date or reminder
// kind yields a new key, so the old one is cancelled and pruned.
type Key struct {
	EventID  string         `json:"eventId"`
	Date     model.Date     `json:"date"`
	Reminder model.Reminder `json:"reminder"`
}

// KeyFor returns the key of ev's reminder; ok is false when ev has none.
func KeyFor(ev model.Event) (k Key, ok bool) {
	if !ev.Reminder.Active() {
		return Key{}, false
	}
	return Key{EventID: ev.ID, Date: ev.Date, Reminder: ev.Reminder}, true
}

func (k Key) compare(o Key) int {
	if c := cmp.Compare(k.EventID, o.EventID); c != 0 {
		return c
	}
	if c := k.Date.Compare(o.Date); c != 0 {
		return c
	}
	return cmp.Compare(k.Reminder, o.Reminder)
}

// FireTime is the event date at hour:00 in loc, moved back by the reminder's
// lead days.
func FireTime(ev model.Event, hour int, loc *time.Location) (time.Time, bool) {
	lead, ok := ev.Reminder.LeadDays()
	if !ok {
		return time.Time{}, false
	}
	return ev.Date.AddDays(-lead).At(hour, 0, loc), true
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Implementations must not call f
// synchronously.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// PermissionSource reports the current notification permission.
type PermissionSource interface {
	Permission() notify.Permission
}

type Options struct {
	Store      store.Store
	Notifier   notify.Notifier
	Permission PermissionSource
	Phrases    i18n.Phrases

	// Hour defaults to DefaultHour.
	Hour int
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
	// DeliveryTimeout bounds a single Notify call.
	DeliveryTimeout time.Duration
}

type armedTimer struct {
	timer  Timer
	seq    uint64
	fireAt time.Time
	n      notify.Notification
}

// Armed describes a pending reminder.
type Armed struct {
	Key       Key       `json:"key"`
	EventName string    `json:"eventName"`
	FireAt    time.Time `json:"fireAt"`
}

// Pass summarizes one reconciliation.
type Pass struct {
	Armed     int
	Cancelled int
	Missed    int
	Pruned    int
	Blocked   bool // permission not granted
}

// Scheduler owns the armed timers and the persisted shown-record. Construct
// one per session; tests can run several side by side.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[Key]*armedTimer
	shown   map[Key]bool
	record  *store.Value[[]Key]
	seq     uint64
	closed  bool
	pending map[Key]string // event names, for Armed()

	notifier   notify.Notifier
	permission PermissionSource
	phrases    i18n.Phrases
	hour       int
	afterFunc  AfterFunc
	timeout    time.Duration
}

func New(opts Options) (*Scheduler, error) {
	record, err := store.NewValue(opts.Store, store.KeyShownNotifications, []Key{})
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		timers:     make(map[Key]*armedTimer),
		shown:      make(map[Key]bool),
		pending:    make(map[Key]string),
		record:     record,
		notifier:   opts.Notifier,
		permission: opts.Permission,
		phrases:    opts.Phrases,
		hour:       opts.Hour,
		afterFunc:  opts.AfterFunc,
		timeout:    opts.DeliveryTimeout,
	}
	for _, k := range record.Get() {
		s.shown[k] = true
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{}
	}
	if s.hour <= 0 || s.hour > 23 {
		s.hour = DefaultHour
	}
	if s.afterFunc == nil {
		s.afterFunc = realAfterFunc
	}
	if s.timeout <= 0 {
		s.timeout = defaultDeliveryTimeout
	}
	return s, nil
}

// Reconcile brings the timer set in line with events as of now. Running it
// twice with the same input changes nothing the second time.
//
// Order matters: stale timers are cancelled before anything new is armed,
// and the permission check only gates arming.
func (s *Scheduler) Reconcile(events []model.Event, now time.Time) Pass {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pass Pass
	if s.closed {
		return pass
	}

	implied := make(map[Key]model.Event, len(events))
	for _, ev := range events {
		if k, ok := KeyFor(ev); ok {
			implied[k] = ev
		}
	}

	for k, a := range s.timers {
		if _, ok := implied[k]; ok {
			continue
		}
		a.timer.Stop()
		delete(s.timers, k)
		delete(s.pending, k)
		pass.Cancelled++
		appLog.Debug("reminder cancelled", "event_id", k.EventID, "date", k.Date, "reminder", k.Reminder)
	}

	if s.permission == nil || s.permission.Permission() != notify.PermissionGranted {
		pass.Blocked = true
	} else {
		for k, ev := range implied {
			if s.shown[k] {
				continue
			}
			if _, ok := s.timers[k]; ok {
				continue
			}
			fireAt, _ := FireTime(ev, s.hour, now.Location())
			if !fireAt.After(now) {
				pass.Missed++
				continue
			}
			s.armLocked(k, ev, fireAt, fireAt.Sub(now))
			pass.Armed++
		}
	}

	pass.Pruned = s.pruneLocked(implied)

	if pass.Armed+pass.Cancelled+pass.Pruned > 0 {
		appLog.Info("reminders reconciled",
			"armed", pass.Armed,
			"cancelled", pass.Cancelled,
			"pruned", pass.Pruned,
			"active", len(s.timers),
		)
	}
	return pass
}

func (s *Scheduler) armLocked(k Key, ev model.Event, fireAt time.Time, delay time.Duration) {
	s.seq++
	seq := s.seq
	a := &armedTimer{
		seq:    seq,
		fireAt: fireAt,
		n: notify.Notification{
			Title: s.phrases.ReminderTitle,
			Body:  s.phrases.Body(ev.Name, ev.Reminder),
		},
	}
	a.timer = s.afterFunc(delay, func() { s.fire(k, seq) })
	s.timers[k] = a
	s.pending[k] = ev.Name
	appLog.Debug("reminder armed", "event_id", k.EventID, "reminder", k.Reminder, "fire_at", fireAt.Format(time.RFC3339))
}

// fire runs on the timer goroutine. The key is marked shown before delivery
// so a racing pass can never arm it again.
func (s *Scheduler) fire(k Key, seq uint64) {
	s.mu.Lock()
	a, ok := s.timers[k]
	if !ok || a.seq != seq || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, k)
	delete(s.pending, k)
	if s.shown[k] {
		s.mu.Unlock()
		return
	}
	s.shown[k] = true
	s.persistLocked()
	n := a.n
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		appLog.Error("reminder delivery failed", err, "event_id", k.EventID)
		return
	}
	appLog.Info("reminder delivered", "event_id", k.EventID, "reminder", k.Reminder)
}

// pruneLocked drops shown keys that no live event implies any more.
func (s *Scheduler) pruneLocked(implied map[Key]model.Event) int {
	pruned := 0
	for k := range s.shown {
		if _, ok := implied[k]; !ok {
			delete(s.shown, k)
			pruned++
		}
	}
	if pruned > 0 {
		s.persistLocked()
	}
	return pruned
}

// persistLocked writes the shown set. A failed write is logged; the in-memory
// set stays authoritative for this session and the next write retries it.
func (s *Scheduler) persistLocked() {
	keys := make([]Key, 0, len(s.shown))
	for k := range s.shown {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Key.compare)
	if err := s.record.Set(keys); err != nil {
		appLog.Error("failed to persist shown notifications", err)
	}
}

// Armed lists pending reminders ordered by fire time.
func (s *Scheduler) Armed() []Armed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Armed, 0, len(s.timers))
	for k, a := range s.timers {
		out = append(out, Armed{Key: k, EventName: s.pending[k], FireAt: a.fireAt})
	}
	slices.SortFunc(out, func(a, b Armed) int {
		if c := a.FireAt.Compare(b.FireAt); c != 0 {
			return c
		}
		return a.Key.compare(b.Key)
	})
	return out
}

// Shown reports whether k has already been delivered.
func (s *Scheduler) Shown(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown[k]
}

// Close cancels every armed timer without marking it shown, so a later
// session re-arms reminders that are still in the future.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.timers {
		a.timer.Stop()
		delete(s.timers, k)
	}
	clear(s.pending)
	s.closed = true
}
