// Package calibration holds the on-mouse routines that record the data the
// offline tools fit constants from: sensor calibration sweeps and speed
// profiles. The routines drive the mouse; the fitting happens elsewhere
// (see cmd/sensorfit).
package calibration

import (
	"context"

	"github.com/edaniels/golog"

	"github.com/erizobot/erizo/detection"
	"github.com/erizobot/erizo/drive"
	"github.com/erizobot/erizo/motion"
	"github.com/erizobot/erizo/systick"
)

// FrontSensorsMessage tags the log records the sensor fitter consumes.
const FrontSensorsMessage = "front sensors calibration"

// LinearProfileMessage tags the linear speed profile records.
const LinearProfileMessage = "linear speed profile"

// TurnProfileMessage tags the static turn profile records.
const TurnProfileMessage = "static turn profile"

// frontCalibrationSpeed is slow enough for many sensor rounds per
// centimeter of approach.
const frontCalibrationSpeed = 0.2

// A Runner executes calibration routines against live hardware.
type Runner struct {
	logger  golog.Logger
	mouse   *motion.Mouse
	sensors *detection.Sensors
	drive   drive.Controller
	odom    drive.Odometer
	ticker  systick.Source
}

// NewRunner returns a calibration runner over the given collaborators.
func NewRunner(
	mouse *motion.Mouse,
	sensors *detection.Sensors,
	d drive.Controller,
	odom drive.Odometer,
	ticker systick.Source,
	logger golog.Logger,
) *Runner {
	return &Runner{
		logger:  logger,
		mouse:   mouse,
		sensors: sensors,
		drive:   d,
		odom:    odom,
		ticker:  ticker,
	}
}

// RunFrontSensorsCalibration creeps the mouse toward a front wall over the
// given approach distance, logging the front sensors' raw off/on pairs and
// the odometry once per sensor round. The sweep starts from a known wall
// distance; sensorfit turns the records into fitted (a, b) pairs.
func (r *Runner) RunFrontSensorsCalibration(ctx context.Context, approach float64) error {
	start := r.odom.AverageMicrometers()
	target := start + int64(approach*1e6)
	r.drive.SetTargetAngularSpeed(0)
	r.drive.SetTargetLinearSpeed(frontCalibrationSpeed)
	defer r.drive.SetTargetLinearSpeed(0)

	for r.odom.AverageMicrometers() < target {
		if err := r.ticker.SleepTicks(ctx, detection.CycleTicksPerRound); err != nil {
			return err
		}
		snap := r.sensors.RawSnapshot()
		r.logger.Infow(FrontSensorsMessage,
			"left_raw_off", snap[detection.FrontLeft].Off,
			"left_raw_on", snap[detection.FrontLeft].On,
			"right_raw_off", snap[detection.FrontRight].Off,
			"right_raw_on", snap[detection.FrontRight].On,
			"micrometers", r.odom.AverageMicrometers()-start,
		)
	}
	return nil
}

// RunLinearSpeedProfile runs a full accelerate/brake cycle over two cells,
// logging the commanded target speed against odometry once per tick. The
// recording tunes the linear acceleration and deceleration magnitudes.
func (r *Runner) RunLinearSpeedProfile(ctx context.Context, distance float64) error {
	start := r.odom.AverageMicrometers()
	logTick := func() error {
		if err := r.ticker.SleepTicks(ctx, 1); err != nil {
			return err
		}
		r.logger.Infow(LinearProfileMessage,
			"ticks", r.ticker.Ticks(),
			"target_linear_speed", r.drive.TargetLinearSpeed(),
			"micrometers", r.odom.AverageMicrometers()-start,
		)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- r.mouse.Decelerate(ctx, start, distance, 0)
	}()
	for {
		select {
		case err := <-done:
			return err
		default:
			if err := logTick(); err != nil {
				<-done
				return err
			}
		}
	}
}

// RunStaticTurnProfile executes one in-place right turn, logging the
// commanded angular speed once per tick. The recording calibrates the spin
// tick budget against the angular acceleration profile.
func (r *Runner) RunStaticTurnProfile(ctx context.Context) error {
	startTicks := r.ticker.Ticks()
	logTick := func() error {
		if err := r.ticker.SleepTicks(ctx, 1); err != nil {
			return err
		}
		r.logger.Infow(TurnProfileMessage,
			"ticks", r.ticker.Ticks()-startTicks,
			"target_angular_speed", r.drive.TargetAngularSpeed(),
		)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- r.mouse.TurnRight(ctx)
	}()
	for {
		select {
		case err := <-done:
			return err
		default:
			if err := logTick(); err != nil {
				<-done
				return err
			}
		}
	}
}
