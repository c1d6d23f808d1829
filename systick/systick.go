// Package systick maintains the system tick counter that paces the sensing
// cycle and the motion control waits.
package systick

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"
)

// A Source provides the elapsed tick count and a cooperative wait on it.
type Source interface {
	// Ticks returns the number of ticks elapsed since the source started.
	Ticks() uint32

	// SleepTicks yields until n more ticks have elapsed.
	SleepTicks(ctx context.Context, n uint32) error

	// Frequency returns the tick frequency, in Hertz.
	Frequency() float64
}

// Ticker drives a tick counter off a wall or mock clock. All waiters observe
// the same counter, so anything paced by one Ticker shares a time base.
type Ticker struct {
	frequency float64
	ticks     atomic.Uint32

	mu     sync.Mutex
	tickCh chan struct{}

	cancelCtx               context.Context
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// New starts a Ticker counting at the given frequency.
func New(c clock.Clock, frequencyHz float64) (*Ticker, error) {
	if frequencyHz <= 0 {
		return nil, errors.Errorf("tick frequency must be positive, got %f", frequencyHz)
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	t := &Ticker{
		frequency: frequencyHz,
		tickCh:    make(chan struct{}),
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
	period := time.Duration(float64(time.Second) / frequencyHz)
	ticker := c.Ticker(period)
	t.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.cancelCtx.Done():
				return
			case <-ticker.C:
				t.advance()
			}
		}
	}, t.activeBackgroundWorkers.Done)
	return t, nil
}

func (t *Ticker) advance() {
	t.ticks.Inc()
	t.mu.Lock()
	close(t.tickCh)
	t.tickCh = make(chan struct{})
	t.mu.Unlock()
}

func (t *Ticker) nextTick() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickCh
}

// Ticks returns the elapsed tick count. The counter wraps around; callers
// must compare counts by unsigned difference.
func (t *Ticker) Ticks() uint32 {
	return t.ticks.Load()
}

// Frequency returns the tick frequency, in Hertz.
func (t *Ticker) Frequency() float64 {
	return t.frequency
}

// SleepTicks yields until n more ticks have elapsed or the context is done.
func (t *Ticker) SleepTicks(ctx context.Context, n uint32) error {
	start := t.Ticks()
	for t.Ticks()-start < n {
		ch := t.nextTick()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
	return nil
}

// Close stops the counter and waits for its worker to finish.
func (t *Ticker) Close() {
	t.cancel()
	t.activeBackgroundWorkers.Wait()
}
