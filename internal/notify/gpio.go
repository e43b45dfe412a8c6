package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const defaultPulse = 2 * time.Second

// outputPin is the part of gpio.PinIO the notifier drives.
type outputPin interface {
	Name() string
	Out(l gpio.Level) error
}

// GPIONotifier pulses a GPIO line (LED, buzzer, relay) for each notification.
//
// Typical wiring on a Raspberry Pi: an LED with resistor on GPIO17, configured
// as gpio_pin: "GPIO17".
type GPIONotifier struct {
	mu    sync.Mutex
	pin   outputPin
	pulse time.Duration
}

// NewGPIONotifier initializes the periph.io host drivers and looks up pinName.
// Host initialization happens here rather than lazily so that a typo in the
// pin name fails at startup.
func NewGPIONotifier(pinName string, pulse time.Duration) (*GPIONotifier, error) {
	if pinName == "" {
		return nil, fmt.Errorf("notify(gpio): pin name is empty")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("notify(gpio): host init: %w", err)
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, fmt.Errorf("notify(gpio): pin %q not found", pinName)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("notify(gpio): set %s low: %w", pinName, err)
	}
	return newGPIONotifier(p, pulse), nil
}

func newGPIONotifier(p outputPin, pulse time.Duration) *GPIONotifier {
	if pulse <= 0 {
		pulse = defaultPulse
	}
	return &GPIONotifier{pin: p, pulse: pulse}
}

// Notify drives the pin high for the pulse duration. Concurrent notifications
// queue behind each other so pulses stay distinguishable. The pin is always
// returned low, even when ctx is cancelled mid-pulse.
func (g *GPIONotifier) Notify(ctx context.Context, _ Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("notify(gpio): set %s high: %w", g.pin.Name(), err)
	}

	t := time.NewTimer(g.pulse)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}

	if err := g.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("notify(gpio): set %s low: %w", g.pin.Name(), err)
	}
	return ctx.Err()
}
