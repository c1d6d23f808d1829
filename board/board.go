// Package board defines the hardware capabilities the sensing cycle drives:
// analog conversion channels, infrared emitter pins and status LEDs.
package board

import "context"

// An Analog is a single analog conversion channel. Conversions are started
// explicitly so that their latency can be hidden behind other work; Read
// returns the most recently completed result.
type Analog interface {
	// StartConversion begins a conversion on the channel.
	StartConversion(ctx context.Context) error

	// Read returns the last completed conversion result.
	Read(ctx context.Context) (int, error)
}

// A GPIOPin is a single digital output, used to power infrared emitters.
type GPIOPin interface {
	Set(ctx context.Context, high bool) error
}

// An LED is a status indicator with no semantic effect.
type LED interface {
	Toggle(ctx context.Context) error
}

// A Board provides named access to the hardware attached to it.
type Board interface {
	AnalogByName(name string) (Analog, bool)
	GPIOPinByName(name string) (GPIOPin, bool)
	LEDByName(name string) (LED, bool)

	Close(ctx context.Context) error
}
