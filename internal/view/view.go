// Package view projects the event collection into the ordered, labelled list
// the UI shows.
package view

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/collate"

	"evcount/internal/dates"
	"evcount/internal/i18n"
	"evcount/internal/model"
	"evcount/internal/store"
)

// Filter selects events by status.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterUpcoming Filter = "upcoming"
	FilterToday    Filter = "today"
	FilterPast     Filter = "past"
)

// ParseFilter reads a filter name. The list opens on upcoming events, so an
// empty name means FilterUpcoming.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterUpcoming, nil
	case FilterAll, FilterUpcoming, FilterToday, FilterPast:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

func (f Filter) match(s dates.Status) bool {
	return f == FilterAll || f == "" || string(f) == string(s)
}

type SortOrder string

const (
	SortDateAsc  SortOrder = "date-asc"
	SortDateDesc SortOrder = "date-desc"
	SortNameAsc  SortOrder = "name-asc"
	SortNameDesc SortOrder = "name-desc"
)

// DefaultSort is used until the user picks an order.
const DefaultSort = SortDateAsc

func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortDateAsc, SortDateDesc, SortNameAsc, SortNameDesc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

func (o *SortOrder) UnmarshalText(b []byte) error {
	parsed, err := ParseSortOrder(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Item is one row of the projected list.
type Item struct {
	model.Event
	Status dates.Status `json:"status"`
	Days   int          `json:"days"`
	Label  string       `json:"label"`
	Glyph  string       `json:"glyph"`
}

// Project filters and orders evs as of now. Equal keys keep their collection
// order. Name ordering follows the phrase table's language.
func Project(evs []model.Event, filter Filter, order SortOrder, now time.Time, p i18n.Phrases) []Item {
	items := make([]Item, 0, len(evs))
	for _, ev := range evs {
		days, status := dates.Countdown(ev.Date, now)
		if !filter.match(status) {
			continue
		}
		items = append(items, Item{
			Event:  ev,
			Status: status,
			Days:   days,
			Label:  p.Countdown(days, status),
			Glyph:  ev.Icon.Glyph(),
		})
	}

	switch order {
	case SortDateDesc:
		slices.SortStableFunc(items, func(a, b Item) int { return b.Date.Compare(a.Date) })
	case SortNameAsc, SortNameDesc:
		col := collate.New(p.Tag, collate.Loose)
		sign := 1
		if order == SortNameDesc {
			sign = -1
		}
		slices.SortStableFunc(items, func(a, b Item) int {
			return sign * col.CompareString(a.Name, b.Name)
		})
	default:
		slices.SortStableFunc(items, func(a, b Item) int { return a.Date.Compare(b.Date) })
	}
	return items
}

// SortSetting is the persisted sort preference.
type SortSetting struct {
	v *store.Value[SortOrder]
}

func NewSortSetting(s store.Store) (*SortSetting, error) {
	v, err := store.NewValue(s, store.KeySortOrder, DefaultSort)
	if err != nil {
		return nil, err
	}
	return &SortSetting{v: v}, nil
}

func (s *SortSetting) Get() SortOrder {
	return s.v.Get()
}

func (s *SortSetting) Set(o SortOrder) error {
	if _, err := ParseSortOrder(string(o)); err != nil {
		return err
	}
	return s.v.Set(o)
}
