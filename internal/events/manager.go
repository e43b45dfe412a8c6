// Package events is the single writer of the event and category collections.
package events

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	appLog "evcount/internal/log"
	"evcount/internal/model"
	"evcount/internal/store"
)

var (
	ErrNotFound          = errors.New("event not found")
	ErrInvalidEvent      = errors.New("invalid event")
	ErrProtectedCategory = errors.New("category cannot be deleted")
	ErrUnknownCategory   = errors.New("unknown category")
)

// Observer receives the full collection after every successful mutation.
type Observer func(events []model.Event)

// Manager owns CRUD over events and categories. All reads return copies.
type Manager struct {
	mu         sync.Mutex
	events     *store.Value[[]model.Event]
	categories *store.Value[[]string]
	observers  []Observer
	newID      func() string
	staged     *Staged
}

// NewManager loads both collections from s, seeding categories with
// model.DefaultCategories on first use.
func NewManager(s store.Store) (*Manager, error) {
	evs, err := store.NewValue(s, store.KeyEvents, []model.Event{})
	if err != nil {
		return nil, err
	}
	cats, err := store.NewValue(s, store.KeyCategories, slices.Clone(model.DefaultCategories))
	if err != nil {
		return nil, err
	}
	return &Manager{
		events:     evs,
		categories: cats,
		newID:      uuid.NewString,
	}, nil
}

// Subscribe registers fn for future changes. It is not called with the
// current snapshot; callers that need it should call List.
func (m *Manager) Subscribe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// WithSnapshot runs fn on the current collection under the mutation lock, so
// it is ordered with observer calls. fn must not call back into the Manager.
func (m *Manager) WithSnapshot(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(slices.Clone(m.events.Get()))
}

func (m *Manager) List() []model.Event {
	return slices.Clone(m.events.Get())
}

func (m *Manager) Get(id string) (model.Event, bool) {
	for _, ev := range m.events.Get() {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Add validates ev, assigns a fresh id and appends it.
func (m *Manager) Add(ev model.Event) (string, error) {
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	ev.ID = m.newID()

	err := m.mutate(func(evs []model.Event) ([]model.Event, error) {
		return append(slices.Clone(evs), ev), nil
	})
	if err != nil {
		return "", err
	}
	appLog.Info("event added", "id", ev.ID, "name", ev.Name, "date", ev.Date)
	return ev.ID, nil
}

// Patch carries the fields an edit changes; nil means keep.
type Patch struct {
	Name     *string
	Date     *model.Date
	Time     *string
	Category *string
	Icon     *model.Icon
	Reminder *model.Reminder
}

// Update applies p to the event with id in place; the id never changes.
func (m *Manager) Update(id string, p Patch) error {
	return m.mutate(func(evs []model.Event) ([]model.Event, error) {
		i := slices.IndexFunc(evs, func(e model.Event) bool { return e.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		ev := evs[i]
		if p.Name != nil {
			ev.Name = *p.Name
		}
		if p.Date != nil {
			ev.Date = *p.Date
		}
		if p.Time != nil {
			ev.Time = *p.Time
		}
		if p.Category != nil {
			ev.Category = *p.Category
		}
		if p.Icon != nil {
			ev.Icon = *p.Icon
		}
		if p.Reminder != nil {
			ev.Reminder = *p.Reminder
		}
		ev.Normalize()
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		out := slices.Clone(evs)
		out[i] = ev
		return out, nil
	})
}

func (m *Manager) Delete(id string) error {
	err := m.mutate(func(evs []model.Event) ([]model.Event, error) {
		out := slices.DeleteFunc(slices.Clone(evs), func(e model.Event) bool { return e.ID == id })
		if len(out) == len(evs) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return out, nil
	})
	if err == nil {
		appLog.Info("event deleted", "id", id)
	}
	return err
}

// Replace swaps the whole collection; ids must already be assigned.
func (m *Manager) Replace(evs []model.Event) error {
	return m.mutate(func([]model.Event) ([]model.Event, error) {
		return slices.Clone(evs), nil
	})
}

// Merge appends events that are not already present with the same name and
// date, assigning fresh ids. It returns how many were added.
func (m *Manager) Merge(incoming []model.Event) (int, error) {
	added := 0
	err := m.mutate(func(evs []model.Event) ([]model.Event, error) {
		type nameDate struct {
			name string
			date model.Date
		}
		seen := make(map[nameDate]bool, len(evs))
		for _, e := range evs {
			seen[nameDate{e.Name, e.Date}] = true
		}
		out := slices.Clone(evs)
		for _, ev := range incoming {
			ev.Normalize()
			if err := ev.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidEvent, ev.Name, err)
			}
			k := nameDate{ev.Name, ev.Date}
			if seen[k] {
				continue
			}
			seen[k] = true
			ev.ID = m.newID()
			out = append(out, ev)
			added++
		}
		if added == 0 {
			return nil, errNoChange
		}
		return out, nil
	})
	if errors.Is(err, errNoChange) {
		return 0, nil
	}
	return added, err
}

var errNoChange = errors.New("no change")

func (m *Manager) Categories() []string {
	return slices.Clone(m.categories.Get())
}

// AddCategory appends a trimmed name. It reports false, without error, when
// the name is blank or already present ignoring case.
func (m *Manager) AddCategory(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	added := false
	err := m.categories.Update(func(cats []string) ([]string, error) {
		for _, c := range cats {
			if strings.EqualFold(c, name) {
				return nil, errNoChange
			}
		}
		added = true
		return append(slices.Clone(cats), name), nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	appLog.Info("category added", "name", name)
	return added, nil
}

// DeleteCategory removes name and moves its events to General.
// General itself is protected.
func (m *Manager) DeleteCategory(name string) error {
	if name == model.GeneralCategory {
		return fmt.Errorf("%w: %s", ErrProtectedCategory, name)
	}

	// Reassign first: a crash in between leaves an unused category rather
	// than events pointing at a missing one.
	reassigned := 0
	err := m.mutate(func(evs []model.Event) ([]model.Event, error) {
		out := slices.Clone(evs)
		for i := range out {
			if out[i].Category == name {
				out[i].Category = model.GeneralCategory
				reassigned++
			}
		}
		if reassigned == 0 {
			return nil, errNoChange
		}
		return out, nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return err
	}

	removed := false
	err = m.categories.Update(func(cats []string) ([]string, error) {
		out := slices.DeleteFunc(slices.Clone(cats), func(c string) bool { return c == name })
		if len(out) == len(cats) {
			return nil, errNoChange
		}
		removed = true
		return out, nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return err
	}
	if !removed && reassigned == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	appLog.Info("category deleted", "name", name, "reassigned", reassigned)
	return nil
}

// mutate runs fn under the manager lock, persists the result and notifies
// observers with the new snapshot. errNoChange skips both.
//
// Observers run under the lock so they see snapshots in mutation order; they
// must not call back into the Manager's mutating methods.
func (m *Manager) mutate(fn func([]model.Event) ([]model.Event, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateLocked(fn)
}

func (m *Manager) mutateLocked(fn func([]model.Event) ([]model.Event, error)) error {
	var snapshot []model.Event
	err := m.events.Update(func(evs []model.Event) ([]model.Event, error) {
		next, err := fn(evs)
		if err != nil {
			return nil, err
		}
		snapshot = next
		return next, nil
	})
	if err != nil {
		return err
	}
	for _, obs := range m.observers {
		obs(slices.Clone(snapshot))
	}
	return nil
}
