// Package detection runs the infrared sensing cycle and turns its raw
// readings into wall distances, wall presence and alignment errors.
//
// Each sensor pairs an infrared emitter with a phototransistor. The
// phototransistor is sampled with the emitter off and then on; the difference
// isolates the reflected signal from ambient light. Distances follow the
// fitted model a/ln(on-off) - b, with a cumulative runtime drift offset on
// the side sensors.
package detection

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"github.com/erizobot/erizo/board"
	"github.com/erizobot/erizo/config"
	"github.com/erizobot/erizo/systick"
)

// SensorID identifies one of the four fixed sensors.
type SensorID int

// The four sensor identities, in cycle order.
const (
	SideLeft SensorID = iota
	SideRight
	FrontLeft
	FrontRight

	NumSensors = 4
)

func (id SensorID) String() string {
	switch id {
	case SideLeft:
		return "side_left"
	case SideRight:
		return "side_right"
	case FrontLeft:
		return "front_left"
	case FrontRight:
		return "front_right"
	default:
		return "unknown"
	}
}

func (id SensorID) isSide() bool {
	return id == SideLeft || id == SideRight
}

// A RawPair is one sensor's last emitter-off and emitter-on readings.
type RawPair struct {
	Off uint16
	On  uint16
}

// Hardware is the set of peripherals the sensing cycle drives.
type Hardware struct {
	// Photo are the phototransistor conversion channels, by sensor.
	Photo [NumSensors]board.Analog

	// Emitters are the infrared emitter pins, by sensor.
	Emitters [NumSensors]board.GPIOPin

	// Battery is an auxiliary channel converted once per sensor slot,
	// overlapped with the off capture.
	Battery board.Analog
}

// HardwareFromBoard pulls the configured peripherals off a board.
func HardwareFromBoard(b board.Board, cfg *config.BoardConfig) (Hardware, error) {
	var hw Hardware
	for id := SensorID(0); id < NumSensors; id++ {
		pinName := cfg.EmitterPins[id.String()]
		pin, ok := b.GPIOPinByName(pinName)
		if !ok {
			return hw, errors.Errorf("board has no pin %q for %s emitter", pinName, id)
		}
		hw.Emitters[id] = pin
		channel, ok := b.AnalogByName(id.String())
		if !ok {
			return hw, errors.Errorf("board has no analog channel for %s", id)
		}
		hw.Photo[id] = channel
	}
	battery, ok := b.AnalogByName("battery")
	if !ok {
		return hw, errors.New("board has no battery channel")
	}
	hw.Battery = battery
	return hw, nil
}

// Sensors owns the sensing cycle state and the derived distances. Raw values
// and distances are written only by the cycle; everything else reads them
// through atomic loads, so readers always see values from some completed
// round.
type Sensors struct {
	logger golog.Logger
	hw     Hardware
	ticker systick.Source

	calibrationA [NumSensors]float64
	calibrationB [NumSensors]float64
	drift        [NumSensors]atomic.Float64

	sideWallDetection  float64
	frontWallDetection float64
	middleMazeDistance float64

	rawOff   [NumSensors]atomic.Uint32
	rawOn    [NumSensors]atomic.Uint32
	distance [NumSensors]atomic.Float64

	// cycle state, touched only by the cycle itself
	active SensorID
	phase  phase

	cancelCtx               context.Context
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

const (
	sideWallFactor  = 0.90
	frontWallFactor = 1.5
)

// New returns sensors over the given hardware. Start must be called to run
// the cycle.
func New(hw Hardware, cfg *config.Config, ticker systick.Source, logger golog.Logger) (*Sensors, error) {
	for id := SensorID(0); id < NumSensors; id++ {
		if hw.Photo[id] == nil || hw.Emitters[id] == nil {
			return nil, errors.Errorf("missing hardware for sensor %s", id)
		}
	}
	if hw.Battery == nil {
		return nil, errors.New("missing battery channel")
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	s := &Sensors{
		logger:             logger,
		hw:                 hw,
		ticker:             ticker,
		sideWallDetection:  cfg.Geometry.CellDimension * sideWallFactor,
		frontWallDetection: cfg.Geometry.CellDimension * frontWallFactor,
		middleMazeDistance: cfg.Geometry.MiddleMazeDistance,
		cancelCtx:          cancelCtx,
		cancel:             cancel,
	}
	pairs := [NumSensors]config.SensorPair{
		SideLeft:   cfg.Sensors.SideLeft,
		SideRight:  cfg.Sensors.SideRight,
		FrontLeft:  cfg.Sensors.FrontLeft,
		FrontRight: cfg.Sensors.FrontRight,
	}
	for id, pair := range pairs {
		s.calibrationA[id] = pair.A
		s.calibrationB[id] = pair.B
	}
	return s, nil
}

// Start runs the sensing cycle, one phase per tick.
func (s *Sensors) Start() {
	s.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		for {
			if err := s.ticker.SleepTicks(s.cancelCtx, 1); err != nil {
				return
			}
			s.step(s.cancelCtx)
		}
	}, s.activeBackgroundWorkers.Done)
}

// Close stops the cycle and waits for it to finish.
func (s *Sensors) Close() {
	s.cancel()
	s.activeBackgroundWorkers.Wait()
}

// estimateDistance applies the calibration model to one off/on pair. A
// non-positive difference has no usable reflected signal and yields NaN;
// every consumer treats a non-finite distance as "no reliable reading".
func estimateDistance(a, b float64, off, on uint16) float64 {
	delta := float64(on) - float64(off)
	if delta <= 0 {
		return math.NaN()
	}
	return a/math.Log(delta) - b
}

// updateDistances recomputes all four distances from the freshly completed
// round.
func (s *Sensors) updateDistances() {
	for id := SensorID(0); id < NumSensors; id++ {
		d := estimateDistance(
			s.calibrationA[id],
			s.calibrationB[id],
			uint16(s.rawOff[id].Load()),
			uint16(s.rawOn[id].Load()),
		)
		if id.isSide() {
			d -= s.drift[id].Load()
		}
		s.distance[id].Store(d)
	}
}

// RawSnapshot copies all four sensors' off/on pairs.
func (s *Sensors) RawSnapshot() [NumSensors]RawPair {
	var out [NumSensors]RawPair
	for id := SensorID(0); id < NumSensors; id++ {
		out[id] = RawPair{
			Off: uint16(s.rawOff[id].Load()),
			On:  uint16(s.rawOn[id].Load()),
		}
	}
	return out
}

// Distance returns the latest distance of one sensor, in meters. The value
// may be NaN or infinite when the sensor had no usable signal.
func (s *Sensors) Distance(id SensorID) float64 {
	return s.distance[id].Load()
}

// DriftOffset returns the cumulative drift offset of one sensor.
func (s *Sensors) DriftOffset(id SensorID) float64 {
	return s.drift[id].Load()
}

// LeftWallDetected reports whether the left side wall is present.
func (s *Sensors) LeftWallDetected() bool {
	return s.Distance(SideLeft) < s.sideWallDetection
}

// RightWallDetected reports whether the right side wall is present.
func (s *Sensors) RightWallDetected() bool {
	return s.Distance(SideRight) < s.sideWallDetection
}

// FrontWallDetected reports whether a front wall is present. Both front
// sensors must agree, which also filters out single-sensor glitches.
func (s *Sensors) FrontWallDetected() bool {
	return s.Distance(FrontLeft) < s.frontWallDetection &&
		s.Distance(FrontRight) < s.frontWallDetection
}

// Walls bundles the three wall-presence readings around the mouse.
type Walls struct {
	Left  bool
	Front bool
	Right bool
}

// ReadWalls returns the wall presence readings around the mouse.
func (s *Sensors) ReadWalls() Walls {
	return Walls{
		Left:  s.LeftWallDetected(),
		Front: s.FrontWallDetected(),
		Right: s.RightWallDetected(),
	}
}

// SideSensorsError returns how far the mouse sits from the corridor center,
// signed. With both side walls present (or neither) there is nothing to
// correct against and the error is zero.
func (s *Sensors) SideSensorsError() float64 {
	left := s.LeftWallDetected()
	right := s.RightWallDetected()
	switch {
	case right && !left:
		return s.Distance(SideRight) - s.middleMazeDistance
	case left && !right:
		return s.middleMazeDistance - s.Distance(SideLeft)
	default:
		return 0
	}
}

// FrontSensorsError returns the signed heading misalignment toward a
// perpendicular front wall.
func (s *Sensors) FrontSensorsError() float64 {
	return s.Distance(FrontLeft) - s.Distance(FrontRight)
}

// FrontWallDistance returns the mean front wall distance, in meters.
func (s *Sensors) FrontWallDistance() float64 {
	return (s.Distance(FrontLeft) + s.Distance(FrontRight)) / 2
}
