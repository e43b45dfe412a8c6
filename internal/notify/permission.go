package notify

import (
	"fmt"

	appLog "evcount/internal/log"
	"evcount/internal/store"
)

// Permission mirrors the tri-state of a desktop notification grant.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	}
	return "", fmt.Errorf("invalid permission %q", s)
}

// Gate is the persisted notification permission.
//
// Only form-level collaborators call RequestIfDefault; the reminder scheduler
// reads Permission and never asks.
type Gate struct {
	v         *store.Value[Permission]
	autoGrant bool
}

func NewGate(s store.Store, autoGrant bool) (*Gate, error) {
	v, err := store.NewValue(s, store.KeyPermission, PermissionDefault)
	if err != nil {
		return nil, err
	}
	return &Gate{v: v, autoGrant: autoGrant}, nil
}

func (g *Gate) Permission() Permission {
	return g.v.Get()
}

func (g *Gate) Set(p Permission) error {
	if _, err := ParsePermission(string(p)); err != nil {
		return err
	}
	return g.v.Set(p)
}

// RequestIfDefault answers a pending request once. With auto_grant the
// permission becomes granted; otherwise it stays default until set through
// the API. Granted and denied are never changed here.
func (g *Gate) RequestIfDefault() Permission {
	current := g.v.Get()
	if current != PermissionDefault {
		return current
	}
	if !g.autoGrant {
		appLog.Info("notification permission requested; grant it via PUT /api/notifications/permission")
		return current
	}
	if err := g.v.Set(PermissionGranted); err != nil {
		appLog.Error("failed to persist notification permission", err)
		return current
	}
	appLog.Info("notification permission granted automatically")
	return PermissionGranted
}
