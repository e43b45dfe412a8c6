package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"evcount/internal/store"
)

type fakePin struct {
	mu     sync.Mutex
	levels []gpio.Level
	failAt int
}

func (p *fakePin) Name() string { return "FAKE1" }

func (p *fakePin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, l)
	if p.failAt > 0 && len(p.levels) == p.failAt {
		return errors.New("bus error")
	}
	return nil
}

func TestGPIONotifierPulses(t *testing.T) {
	pin := &fakePin{}
	g := newGPIONotifier(pin, time.Millisecond)

	if err := g.Notify(context.Background(), Notification{Title: "x"}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(pin.levels) != 2 || pin.levels[0] != gpio.High || pin.levels[1] != gpio.Low {
		t.Errorf("expected high then low, got %v", pin.levels)
	}
}

func TestGPIONotifierReleasesPinOnCancel(t *testing.T) {
	pin := &fakePin{}
	g := newGPIONotifier(pin, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Notify(ctx, Notification{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if last := pin.levels[len(pin.levels)-1]; last != gpio.Low {
		t.Errorf("expected pin low after cancel, got %v", last)
	}
}

func TestGPIONotifierReportsPinError(t *testing.T) {
	pin := &fakePin{failAt: 1}
	g := newGPIONotifier(pin, time.Millisecond)
	if err := g.Notify(context.Background(), Notification{}); err == nil {
		t.Error("expected error when pin cannot be driven")
	}
}

func TestMultiAttemptsAllSinks(t *testing.T) {
	var calls []string
	sink := func(name string, err error) Notifier {
		return NotifierFunc(func(context.Context, Notification) error {
			calls = append(calls, name)
			return err
		})
	}
	boom := errors.New("boom")
	m := Multi{sink("a", boom), sink("b", nil), LogNotifier{}}

	err := m.Notify(context.Background(), Notification{Title: "t", Body: "b"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to contain boom, got %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("expected both func sinks to run, got %v", calls)
	}
}

func TestGateRequestIfDefault(t *testing.T) {
	s := store.NewMemoryStore()

	manual, err := NewGate(s, false)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	if got := manual.RequestIfDefault(); got != PermissionDefault {
		t.Errorf("expected default without auto grant, got %s", got)
	}

	auto, _ := NewGate(s, true)
	if got := auto.RequestIfDefault(); got != PermissionGranted {
		t.Errorf("expected granted, got %s", got)
	}

	// Persisted across gates sharing a store.
	reloaded, _ := NewGate(s, false)
	if reloaded.Permission() != PermissionGranted {
		t.Errorf("expected persisted grant, got %s", reloaded.Permission())
	}
}

func TestGateNeverOverridesDenied(t *testing.T) {
	g, _ := NewGate(store.NewMemoryStore(), true)
	if err := g.Set(PermissionDenied); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := g.RequestIfDefault(); got != PermissionDenied {
		t.Errorf("expected denied to stick, got %s", got)
	}
	if err := g.Set("maybe"); err == nil {
		t.Error("expected invalid permission to be rejected")
	}
}
