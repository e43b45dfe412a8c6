package model

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidReminder = errors.New("invalid reminder")
	ErrInvalidIcon     = errors.New("invalid icon")
	ErrMissingName     = errors.New("name is required")
	ErrMissingDate     = errors.New("date is required")
)

// Event is a single countdown entry as stored in the persisted collection.
//
// Date is a naive calendar date; Time is display-only and never influences
// reminder timing.
type Event struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Date     Date     `json:"date"`
	Time     string   `json:"time,omitempty"`
	Category string   `json:"category,omitempty"`
	Icon     Icon     `json:"icon,omitempty"`
	Reminder Reminder `json:"reminder,omitempty"`
}

// Normalize fills in the defaults an event gets when fields are left empty:
// category General, the category's icon, and no reminder.
func (e *Event) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.Time = strings.TrimSpace(e.Time)
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = GeneralCategory
	}
	if e.Icon == IconUnset {
		e.Icon = DefaultIconFor(e.Category)
	}
	if e.Reminder == "" {
		e.Reminder = ReminderNone
	}
}

// Validate reports the first problem that keeps e from being stored.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrMissingName
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if e.Time != "" {
		if err := ValidateClock(e.Time); err != nil {
			return err
		}
	}
	if _, ok := e.Reminder.LeadDays(); !ok && e.Reminder != "" && e.Reminder != ReminderNone {
		return fmt.Errorf("%w: %q", ErrInvalidReminder, e.Reminder)
	}
	return nil
}

// ValidateClock checks an "HH:MM" display time.
func ValidateClock(s string) error {
	if len(s) != 5 {
		return fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return nil
}

// Reminder is the lead-time choice for an event's notification.
type Reminder string

const (
	ReminderNone       Reminder = "none"
	ReminderOnDay      Reminder = "on-day"
	ReminderDayBefore  Reminder = "1-day-before"
	ReminderTwoDays    Reminder = "2-days-before"
	ReminderWeekBefore Reminder = "1-week-before"
)

// Reminders lists every option in display order.
var Reminders = []Reminder{ReminderNone, ReminderOnDay, ReminderDayBefore, ReminderTwoDays, ReminderWeekBefore}

// LeadDays returns how many days before the event the reminder fires.
// ok is false for ReminderNone and unknown values.
func (r Reminder) LeadDays() (days int, ok bool) {
	switch r {
	case ReminderOnDay:
		return 0, true
	case ReminderDayBefore:
		return 1, true
	case ReminderTwoDays:
		return 2, true
	case ReminderWeekBefore:
		return 7, true
	default:
		return 0, false
	}
}

// Active reports whether r asks for a notification at all.
func (r Reminder) Active() bool {
	_, ok := r.LeadDays()
	return ok
}

func ParseReminder(s string) (Reminder, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ReminderNone, nil
	}
	for _, r := range Reminders {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReminder, s)
}

func (r *Reminder) UnmarshalText(b []byte) error {
	parsed, err := ParseReminder(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Date is a naive YYYY-MM-DD calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(dateLayout) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals in tests and tables.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// At returns the instant hour:min on d in loc.
func (d Date) At(hour, min int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, min, 0, 0, loc)
}

// Midnight returns the start of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return d.At(0, 0, loc)
}

// AddDays normalizes overflow, so 2025-03-01 minus one day is 2025-02-28.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Compare(o) < 0
}

func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmp.Compare(d.Year, o.Year)
	case d.Month != o.Month:
		return cmp.Compare(d.Month, o.Month)
	default:
		return cmp.Compare(d.Day, o.Day)
	}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
