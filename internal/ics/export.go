package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"evcount/internal/i18n"
	"evcount/internal/model"
)

const productID = "-//evcount//Event Countdown//EN"

// ExportOptions controls calendar export.
type ExportOptions struct {
	// Hour is the local hour reminders fire at.
	Hour int
	// Now stamps DTSTAMP.
	Now     time.Time
	Phrases i18n.Phrases
}

// Export writes evs as an iCalendar document of all-day VEVENTs, with a
// VALARM for each event that has a reminder.
func Export(w io.Writer, evs []model.Event, opts ExportOptions) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("evcount")

	for _, ev := range evs {
		ve := cal.AddEvent(ev.ID + "@evcount")
		ve.SetDtStampTime(opts.Now)
		ve.SetSummary(ev.Name)
		start := ev.Date.Midnight(time.UTC)
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
		if ev.Category != "" {
			ve.AddCategory(ev.Category)
		}
		if ev.Time != "" {
			ve.SetDescription(fmt.Sprintf("%s %s", ev.Icon.Glyph(), ev.Time))
		}

		lead, ok := ev.Reminder.LeadDays()
		if !ok {
			continue
		}
		alarm := ve.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(triggerOffset(lead, opts.Hour))
		alarm.SetProperty(ical.ComponentPropertyDescription, opts.Phrases.Body(ev.Name, ev.Reminder))
	}

	return cal.SerializeTo(w)
}

// triggerOffset is the RFC 5545 duration from the event's start (midnight)
// to hour:00 lead days earlier, e.g. -P6DT15H for a week before at 09:00.
func triggerOffset(leadDays, hour int) string {
	total := hour - leadDays*24
	var b strings.Builder
	if total < 0 {
		b.WriteByte('-')
		total = -total
	}
	b.WriteByte('P')
	if total == 0 {
		b.WriteString("T0S")
		return b.String()
	}
	if d := total / 24; d > 0 {
		fmt.Fprintf(&b, "%dD", d)
	}
	if h := total % 24; h > 0 {
		fmt.Fprintf(&b, "T%dH", h)
	}
	return b.String()
}
