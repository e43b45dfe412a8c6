package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"

	appLog "evcount/internal/log"
	"evcount/internal/model"
)

var (
	ErrInvalidImport  = errors.New("invalid import payload")
	ErrNoStagedImport = errors.New("no staged import")
)

// exportedEvent is the id-less document shape used for export and import.
type exportedEvent struct {
	Name     string         `json:"name"`
	Date     model.Date     `json:"date"`
	Time     string         `json:"time,omitempty"`
	Category string         `json:"category,omitempty"`
	Icon     model.Icon     `json:"icon,omitempty"`
	Reminder model.Reminder `json:"reminder,omitempty"`
}

// Export writes evs as an indented JSON array without ids.
func Export(w io.Writer, evs []model.Event) error {
	out := make([]exportedEvent, 0, len(evs))
	for _, ev := range evs {
		out = append(out, exportedEvent{
			Name:     ev.Name,
			Date:     ev.Date,
			Time:     ev.Time,
			Category: ev.Category,
			Icon:     ev.Icon,
			Reminder: ev.Reminder,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ParseImport decodes a JSON array of event-like objects. Every element needs
// a name and a valid date; ids in the payload are ignored and newID assigns
// fresh ones.
func ParseImport(data []byte, newID func() string) ([]model.Event, error) {
	var raw []exportedEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
	}
	out := make([]model.Event, 0, len(raw))
	for i, r := range raw {
		ev := model.Event{
			Name:     r.Name,
			Date:     r.Date,
			Time:     r.Time,
			Category: r.Category,
			Icon:     r.Icon,
			Reminder: r.Reminder,
		}
		ev.Normalize()
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrInvalidImport, i, err)
		}
		ev.ID = newID()
		out = append(out, ev)
	}
	return out, nil
}

// Staged is a parsed import awaiting confirmation.
type Staged struct {
	Token  string        `json:"token"`
	Events []model.Event `json:"events"`
}

// StageImport parses data and holds it as the single pending import,
// replacing any earlier one. The live collection is untouched.
func (m *Manager) StageImport(data []byte) (Staged, error) {
	evs, err := ParseImport(data, m.newID)
	if err != nil {
		return Staged{}, err
	}
	st := Staged{Token: uuid.NewString(), Events: evs}

	m.mu.Lock()
	m.staged = &st
	m.mu.Unlock()

	appLog.Info("import staged", "token", st.Token, "count", len(evs))
	return st, nil
}

// ConfirmImport replaces the collection with the staged events. The staged
// import is kept when the write fails, so the same token can be retried.
func (m *Manager) ConfirmImport(token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.staged
	if st == nil || st.Token != token {
		return 0, ErrNoStagedImport
	}
	err := m.mutateLocked(func([]model.Event) ([]model.Event, error) {
		return slices.Clone(st.Events), nil
	})
	if err != nil {
		return 0, err
	}
	m.staged = nil
	appLog.Info("import confirmed", "token", token, "count", len(st.Events))
	return len(st.Events), nil
}

// DiscardImport drops the staged import if token matches.
func (m *Manager) DiscardImport(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staged == nil || m.staged.Token != token {
		return ErrNoStagedImport
	}
	m.staged = nil
	return nil
}
