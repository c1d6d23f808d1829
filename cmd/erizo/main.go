// Package main runs the mouse perception stack: the sensing cycle against
// the configured hardware, periodic wall reporting, and optionally the side
// sensor drift calibration. With -fake it runs a short demonstration drive
// against simulated hardware instead.
package main

import (
	"context"
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/erizobot/erizo/board"
	boardfake "github.com/erizobot/erizo/board/fake"
	"github.com/erizobot/erizo/board/periphboard"
	"github.com/erizobot/erizo/calibration"
	"github.com/erizobot/erizo/config"
	"github.com/erizobot/erizo/detection"
	drivefake "github.com/erizobot/erizo/drive/fake"
	"github.com/erizobot/erizo/motion"
	"github.com/erizobot/erizo/systick"
)

var logger = golog.NewDevelopmentLogger("erizo")

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=path to the mouse configuration"`
	Fake       bool   `flag:"fake,usage=run against fake hardware"`
	Calibrate  bool   `flag:"calibrate,usage=calibrate the side sensors before reporting"`
	Profile    string `flag:"profile,usage=run a profiling routine (front, linear, turn) and exit"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := config.Default()
	if argsParsed.ConfigFile != "" {
		var err error
		if cfg, err = config.Read(argsParsed.ConfigFile); err != nil {
			return err
		}
	}

	var b board.Board
	if argsParsed.Fake {
		b = boardfake.NewBoard()
	} else {
		real, err := periphboard.New(&cfg.Board, logger)
		if err != nil {
			return err
		}
		b = real
	}
	defer func() {
		utils.UncheckedError(b.Close(context.Background()))
	}()

	ticker, err := systick.New(bclock.New(), cfg.Motion.TickFrequency)
	if err != nil {
		return err
	}
	defer ticker.Close()

	hw, err := detection.HardwareFromBoard(b, &cfg.Board)
	if err != nil {
		return err
	}
	sensors, err := detection.New(hw, cfg, ticker, logger)
	if err != nil {
		return err
	}
	sensors.Start()
	defer sensors.Close()

	// The production low-level controller binds over its own transport; a
	// fake drive stands in so motion state can still be exercised and
	// reset cleanly.
	drv := drivefake.New(cfg.Motion.LinearAcceleration, cfg.Motion.LinearDeceleration)
	led, _ := b.LEDByName("status")
	mouse := motion.New(cfg, drv, drv, sensors, ticker, led, logger)
	defer mouse.ResetMotion()

	if argsParsed.Fake {
		// integrate the fake drive's odometry off the system tick so
		// position-gated motion completes
		period := 1 / cfg.Motion.TickFrequency
		utils.PanicCapturingGo(func() {
			for {
				if err := ticker.SleepTicks(ctx, 1); err != nil {
					return
				}
				drv.Step(period)
			}
		})
	}

	if argsParsed.Calibrate {
		logger.Info("calibrating side sensors; keep the mouse centered in a corridor")
		if err := sensors.CalibrateSideSensors(ctx); err != nil {
			return err
		}
	}

	if argsParsed.Profile != "" {
		runner := calibration.NewRunner(mouse, sensors, drv, drv, ticker, logger)
		return runProfile(ctx, runner, argsParsed.Profile, cfg)
	}

	if argsParsed.Fake {
		return demoRun(ctx, mouse)
	}
	return reportWalls(ctx, sensors)
}

// runProfile executes one profiling routine; its log output feeds the
// offline fitting tools.
func runProfile(ctx context.Context, runner *calibration.Runner, name string, cfg *config.Config) error {
	switch name {
	case "front":
		return runner.RunFrontSensorsCalibration(ctx, 2*cfg.Geometry.CellDimension)
	case "linear":
		return runner.RunLinearSpeedProfile(ctx, 2*cfg.Geometry.CellDimension)
	case "turn":
		return runner.RunStaticTurnProfile(ctx)
	default:
		return errors.Errorf("unknown profile %q", name)
	}
}

// reportWalls logs the detected walls and distances until interrupted.
func reportWalls(ctx context.Context, sensors *detection.Sensors) error {
	for utils.SelectContextOrWait(ctx, 250*time.Millisecond) {
		walls := sensors.ReadWalls()
		logger.Infow("walls",
			"left", walls.Left,
			"front", walls.Front,
			"right", walls.Right,
			"side_left", sensors.Distance(detection.SideLeft),
			"side_right", sensors.Distance(detection.SideRight),
			"front_wall", sensors.FrontWallDistance(),
			"side_error", sensors.SideSensorsError(),
		)
	}
	return ctx.Err()
}

// demoRun drives a short out-and-back against the fake drive.
func demoRun(ctx context.Context, mouse *motion.Mouse) error {
	mouse.SetStartingPosition()
	for _, direction := range []motion.Direction{motion.Front, motion.Right, motion.Back, motion.Stop} {
		logger.Infow("moving", "direction", direction)
		if err := mouse.Move(ctx, direction); err != nil {
			return err
		}
	}
	logger.Info("demo run complete")
	return nil
}
