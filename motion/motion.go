// Package motion drives the mouse cell by cell: closed-form kinematic
// cutovers for speeding up and braking, fixed-budget in-place turns, and
// cell-relative position bookkeeping corrected against detected front walls.
package motion

import (
	"context"

	"github.com/edaniels/golog"
	"go.uber.org/atomic"

	"github.com/erizobot/erizo/board"
	"github.com/erizobot/erizo/config"
	"github.com/erizobot/erizo/drive"
	"github.com/erizobot/erizo/systick"
)

// Direction selects the next maneuver relative to the mouse's heading.
type Direction int

// The five movement directions.
const (
	Stop Direction = iota
	Left
	Right
	Front
	Back
)

func (d Direction) String() string {
	switch d {
	case Stop:
		return "stop"
	case Left:
		return "left"
	case Right:
		return "right"
	case Front:
		return "front"
	case Back:
		return "back"
	default:
		return "unknown"
	}
}

// A WallSensor provides the wall readings the maneuvers correct against.
type WallSensor interface {
	LeftWallDetected() bool
	RightWallDetected() bool
	FrontWallDetected() bool
	FrontWallDistance() float64
}

// A Mouse executes maneuvers against the drive, pacing its waits on odometry
// and the system tick. It is driven by a single control flow; only the
// maximum speed may be adjusted from elsewhere.
type Mouse struct {
	logger golog.Logger
	drive  drive.Controller
	odom   drive.Odometer
	walls  WallSensor
	ticker systick.Source
	led    board.LED

	geometry config.GeometryConfig
	motion   config.MotionConfig

	maxLinearSpeed atomic.Float64

	// cell bookkeeping, touched only by the control flow
	cellShift            float64
	cellStartMicrometers int64
}

// New returns a mouse over the given collaborators. led may be nil.
func New(
	cfg *config.Config,
	d drive.Controller,
	odom drive.Odometer,
	walls WallSensor,
	ticker systick.Source,
	led board.LED,
	logger golog.Logger,
) *Mouse {
	m := &Mouse{
		logger:   logger,
		drive:    d,
		odom:     odom,
		walls:    walls,
		ticker:   ticker,
		led:      led,
		geometry: cfg.Geometry,
		motion:   cfg.Motion,
	}
	m.maxLinearSpeed.Store(cfg.Motion.MaxLinearSpeed)
	return m
}

// MaxLinearSpeed returns the speed straight runs accelerate toward.
func (m *Mouse) MaxLinearSpeed() float64 {
	return m.maxLinearSpeed.Load()
}

// SetMaxLinearSpeed adjusts the speed straight runs accelerate toward.
func (m *Mouse) SetMaxLinearSpeed(v float64) {
	m.maxLinearSpeed.Store(v)
}

// CellShift returns the sub-cell longitudinal offset within the current cell.
func (m *Mouse) CellShift() float64 {
	return m.cellShift
}

// SetStartingPosition marks the current odometry position as the start of a
// run, with the mouse tail touching the back wall of its starting cell.
func (m *Mouse) SetStartingPosition() {
	m.cellShift = m.geometry.WallWidth/2 + m.geometry.MouseTail
	m.cellStartMicrometers = m.odom.AverageMicrometers()
}

// enteredNextCell marks the beginning of a new cell, right after crossing
// into it. A detected front wall overrides the odometry mark: the signed
// difference between the measured wall distance and the cell dimension
// absorbs whatever drift the run accumulated.
func (m *Mouse) enteredNextCell(ctx context.Context) {
	m.cellStartMicrometers = m.odom.AverageMicrometers()
	if m.walls.FrontWallDetected() {
		correction := int64((m.walls.FrontWallDistance() - m.geometry.CellDimension) * config.MicrometersPerMeter)
		m.cellStartMicrometers += correction
	}
	m.cellShift = 0
	if m.led != nil {
		if err := m.led.Toggle(ctx); err != nil {
			m.logger.Debugw("led toggle failed", "error", err)
		}
	}
}

// enableWallsControl turns on the corrective control loops that have a wall
// to correct against.
func (m *Mouse) enableWallsControl() {
	m.drive.FrontSensorsControl(m.walls.FrontWallDetected())
	m.drive.SideSensorsControl(m.walls.RightWallDetected() || m.walls.LeftWallDetected())
}

// DisableWallsControl turns off all wall-based corrective control.
func (m *Mouse) DisableWallsControl() {
	m.drive.SideSensorsControl(false)
	m.drive.FrontSensorsControl(false)
}

// Move executes the maneuver that takes the mouse into the next cell in the
// given direction, or stops it mid-cell.
func (m *Mouse) Move(ctx context.Context, direction Direction) error {
	switch direction {
	case Left:
		return m.MoveLeft(ctx)
	case Right:
		return m.MoveRight(ctx)
	case Front:
		return m.MoveFront(ctx)
	case Back:
		return m.MoveBack(ctx)
	default:
		return m.StopMiddle(ctx)
	}
}

// ResetMotion returns the drive to idle: motor control off, wall control
// off, drive stage powered down, control state cleared. The only way back to
// the idle state.
func (m *Mouse) ResetMotion() {
	m.drive.MotorControl(false)
	m.DisableWallsControl()
	m.drive.DriveOff()
	m.drive.ResetControlAll()
}
