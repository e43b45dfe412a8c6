// Package store persists JSON values under fixed string keys.
//
// Backends only move bytes; Value[T] layers a typed in-memory mirror with
// read-on-init defaults and write-through updates on top of any backend.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// Keys used by the application.
const (
	KeyEvents             = "events"
	KeyCategories         = "categories"
	KeySortOrder          = "sortOrder"
	KeyShownNotifications = "shownNotifications"
	KeyPermission         = "notificationPermission"
)

var ErrInvalidKey = errors.New("invalid store key")

// keyPattern keeps keys safe as file names and SQL values alike.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Store is a key/value persistence backend.
type Store interface {
	// Load returns the raw value and whether the key exists.
	Load(key string) ([]byte, bool, error)
	Save(key string, data []byte) error
	Close() error
}

// Value mirrors one persisted key in memory.
type Value[T any] struct {
	mu  sync.RWMutex
	s   Store
	key string
	v   T
}

// NewValue reads key from s, falling back to def when the key is missing.
// A stored value that no longer decodes is an error rather than a silent reset.
func NewValue[T any](s Store, key string, def T) (*Value[T], error) {
	data, ok, err := s.Load(key)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	v := def
	if ok {
		var decoded T
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", key, err)
		}
		v = decoded
	}
	return &Value[T]{s: s, key: key, v: v}, nil
}

// Get returns the mirrored value. Callers must not mutate shared slices or
// maps inside it; use Update instead.
func (p *Value[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.v
}

// Set writes v through to the backend and then updates the mirror.
// On error the mirror keeps its previous value.
func (p *Value[T]) Set(v T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setLocked(v)
}

// Update applies fn to the current value and persists the result atomically
// with respect to other Set/Update calls on p.
func (p *Value[T]) Update(fn func(T) (T, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := fn(p.v)
	if err != nil {
		return err
	}
	return p.setLocked(next)
}

func (p *Value[T]) setLocked(v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", p.key, err)
	}
	if err := p.s.Save(p.key, data); err != nil {
		return fmt.Errorf("store: save %s: %w", p.key, err)
	}
	p.v = v
	return nil
}

// Open selects a backend by name ("file" or "sqlite") rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "sqlite":
		return NewSQLiteStore(dir)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
