// Package fake implements a fake board with scriptable analog channels and
// recording pins.
package fake

import (
	"context"
	"sync"

	"github.com/erizobot/erizo/board"
)

// An Analog returns a programmable value and counts conversion starts.
type Analog struct {
	mu          sync.Mutex
	value       int
	conversions int
}

// SetValue sets the value subsequent reads return.
func (a *Analog) SetValue(v int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = v
}

// Conversions returns how many conversions have been started.
func (a *Analog) Conversions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversions
}

// StartConversion counts the request; the fake conversion is instantaneous.
func (a *Analog) StartConversion(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversions++
	return nil
}

// Read returns the programmed value.
func (a *Analog) Read(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value, nil
}

// A GPIOPin records every level it is set to.
type GPIOPin struct {
	mu      sync.Mutex
	high    bool
	history []bool
}

// Set records and applies the new level.
func (p *GPIOPin) Set(ctx context.Context, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.high = high
	p.history = append(p.history, high)
	return nil
}

// High returns the current level.
func (p *GPIOPin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// History returns every level the pin has been set to, in order.
func (p *GPIOPin) History() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bool, len(p.history))
	copy(out, p.history)
	return out
}

// An LED counts toggles.
type LED struct {
	mu      sync.Mutex
	toggles int
}

// Toggle counts the toggle.
func (l *LED) Toggle(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toggles++
	return nil
}

// Toggles returns how many times the LED has been toggled.
func (l *LED) Toggles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toggles
}

// A Board holds named fake peripherals.
type Board struct {
	Analogs map[string]*Analog
	Pins    map[string]*GPIOPin
	LEDs    map[string]*LED
}

// NewBoard returns an empty fake board.
func NewBoard() *Board {
	return &Board{
		Analogs: map[string]*Analog{},
		Pins:    map[string]*GPIOPin{},
		LEDs:    map[string]*LED{},
	}
}

// AnalogByName returns the named analog, creating it on first use.
func (b *Board) AnalogByName(name string) (board.Analog, bool) {
	a, ok := b.Analogs[name]
	if !ok {
		a = &Analog{}
		b.Analogs[name] = a
	}
	return a, true
}

// GPIOPinByName returns the named pin, creating it on first use.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, bool) {
	p, ok := b.Pins[name]
	if !ok {
		p = &GPIOPin{}
		b.Pins[name] = p
	}
	return p, true
}

// LEDByName returns the named LED, creating it on first use.
func (b *Board) LEDByName(name string) (board.LED, bool) {
	l, ok := b.LEDs[name]
	if !ok {
		l = &LED{}
		b.LEDs[name] = l
	}
	return l, true
}

// Close does nothing.
func (b *Board) Close(ctx context.Context) error {
	return nil
}
