// Package i18n holds the user-facing phrases for countdown labels and
// reminder notifications.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"evcount/internal/dates"
	"evcount/internal/model"
)

// Phrases is one language's phrase table.
type Phrases struct {
	Tag language.Tag

	ReminderTitle string
	// ReminderBody takes the event name and a lead phrase.
	ReminderBody string

	Today     string
	Tomorrow  string
	InDays    string // takes a day count
	InAWeek   string
	Day       string
	Days      string
	DayAgo    string
	DaysAgo   string
	TodayUnit string
}

var english = Phrases{
	Tag:           language.English,
	ReminderTitle: "Event reminder",
	ReminderBody:  "%s is %s!",
	Today:         "today",
	Tomorrow:      "tomorrow",
	InDays:        "in %d days",
	InAWeek:       "in a week",
	Day:           "DAY",
	Days:          "DAYS",
	DayAgo:        "DAY AGO",
	DaysAgo:       "DAYS AGO",
	TodayUnit:     "TODAY",
}

var dutch = Phrases{
	Tag:           language.Dutch,
	ReminderTitle: "Evenement herinnering",
	ReminderBody:  "%s is %s!",
	Today:         "vandaag",
	Tomorrow:      "morgen",
	InDays:        "over %d dagen",
	InAWeek:       "over een week",
	Day:           "DAG",
	Days:          "DAGEN",
	DayAgo:        "DAG GELEDEN",
	DaysAgo:       "DAGEN GELEDEN",
	TodayUnit:     "VANDAAG",
}

// For returns the table for a language code; anything unknown gets English.
func For(lang string) Phrases {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "nl", "nl-nl", "dutch":
		return dutch
	default:
		return english
	}
}

// Supported reports whether lang has its own table.
func Supported(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "en", "nl":
		return true
	}
	return false
}

// LeadPhrase describes when the event happens relative to the reminder:
// "today", "tomorrow", "in 2 days", "in a week". Empty for none.
func (p Phrases) LeadPhrase(r model.Reminder) string {
	switch r {
	case model.ReminderOnDay:
		return p.Today
	case model.ReminderDayBefore:
		return p.Tomorrow
	case model.ReminderTwoDays:
		return fmt.Sprintf(p.InDays, 2)
	case model.ReminderWeekBefore:
		return p.InAWeek
	default:
		return ""
	}
}

func (p Phrases) Body(name string, r model.Reminder) string {
	return fmt.Sprintf(p.ReminderBody, name, p.LeadPhrase(r))
}

// Countdown renders a countdown such as "3 DAYS", "TODAY", "1 DAY AGO".
func (p Phrases) Countdown(days int, status dates.Status) string {
	switch status {
	case dates.StatusToday:
		return p.TodayUnit
	case dates.StatusUpcoming:
		if days == 1 {
			return fmt.Sprintf("%d %s", days, p.Day)
		}
		return fmt.Sprintf("%d %s", days, p.Days)
	default:
		if days == 1 {
			return fmt.Sprintf("%d %s", days, p.DayAgo)
		}
		return fmt.Sprintf("%d %s", days, p.DaysAgo)
	}
}
