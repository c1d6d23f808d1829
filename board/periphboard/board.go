// Package periphboard exposes the mouse hardware through periph.io: emitter
// and LED pins as host GPIOs and the phototransistor channels through an
// MCP3008 converter on SPI.
package periphboard

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/erizobot/erizo/board"
	"github.com/erizobot/erizo/config"
)

var hostInitOnce sync.Once

// A Board is the periph.io-backed hardware of the mouse.
type Board struct {
	logger  golog.Logger
	port    spi.PortCloser
	analogs map[string]*mcpChannel
	pins    map[string]*outPin
	leds    map[string]*outPin
}

// New opens the configured SPI device and resolves all configured pins.
func New(cfg *config.BoardConfig, logger golog.Logger) (*Board, error) {
	var hostErr error
	hostInitOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, errors.Wrap(hostErr, "periph host init failed")
	}

	port, err := spireg.Open(cfg.SPIDevice)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open SPI device %q", cfg.SPIDevice)
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to converter on %q", cfg.SPIDevice)
	}

	b := &Board{
		logger:  logger,
		port:    port,
		analogs: map[string]*mcpChannel{},
		pins:    map[string]*outPin{},
		leds:    map[string]*outPin{},
	}
	var connMu sync.Mutex
	for name, channel := range cfg.PhotoChannels {
		b.analogs[name] = &mcpChannel{conn: conn, mu: &connMu, channel: channel}
	}
	b.analogs["battery"] = &mcpChannel{conn: conn, mu: &connMu, channel: cfg.BatteryChannel}

	for name, pinName := range cfg.EmitterPins {
		pin := gpioreg.ByName(pinName)
		if pin == nil {
			return nil, errors.Errorf("emitter pin %q not found", pinName)
		}
		b.pins[name] = &outPin{pin: pin}
	}
	if cfg.LEDPin != "" {
		pin := gpioreg.ByName(cfg.LEDPin)
		if pin == nil {
			return nil, errors.Errorf("led pin %q not found", cfg.LEDPin)
		}
		b.leds["status"] = &outPin{pin: pin}
	}
	return b, nil
}

// AnalogByName returns the named converter channel.
func (b *Board) AnalogByName(name string) (board.Analog, bool) {
	a, ok := b.analogs[name]
	return a, ok
}

// GPIOPinByName returns the named emitter pin.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, bool) {
	p, ok := b.pins[name]
	return p, ok
}

// LEDByName returns the named LED.
func (b *Board) LEDByName(name string) (board.LED, bool) {
	l, ok := b.leds[name]
	return l, ok
}

// Close releases the SPI port.
func (b *Board) Close(ctx context.Context) error {
	return b.port.Close()
}

// mcpChannel is one MCP3008 input. The converter has no background
// conversion mode: StartConversion performs the transfer and latches the
// result for Read, preserving the request/collect split the sensing cycle
// is built around.
type mcpChannel struct {
	conn    spi.Conn
	mu      *sync.Mutex
	channel int
	last    int
}

// StartConversion converts the channel and latches the result.
func (c *mcpChannel) StartConversion(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// single-ended read, MCP3008 protocol
	write := []byte{0x01, byte(0x80 | c.channel<<4), 0x00}
	read := make([]byte, 3)
	if err := c.conn.Tx(write, read); err != nil {
		return errors.Wrapf(err, "conversion failed on channel %d", c.channel)
	}
	c.last = int(read[1]&0x03)<<8 | int(read[2])
	return nil
}

// Read returns the last latched conversion result.
func (c *mcpChannel) Read(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, nil
}

// outPin adapts a periph GPIO to an output with toggle support.
type outPin struct {
	mu   sync.Mutex
	pin  gpio.PinIO
	high bool
}

// Set drives the pin to the given level.
func (p *outPin) Set(ctx context.Context, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set(high)
}

func (p *outPin) set(high bool) error {
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := p.pin.Out(level); err != nil {
		return errors.Wrapf(err, "cannot set pin %q", p.pin.Name())
	}
	p.high = high
	return nil
}

// Toggle flips the pin.
func (p *outPin) Toggle(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set(!p.high)
}
