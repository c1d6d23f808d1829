package motion

import (
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	boardfake "github.com/erizobot/erizo/board/fake"
	"github.com/erizobot/erizo/config"
	drivefake "github.com/erizobot/erizo/drive/fake"
)

// stepTicker is a synchronous tick source: sleeping advances the counter
// directly, firing an optional per-tick hook. Waits driven by it resolve at
// exact tick boundaries, which the turn budget tests rely on.
type stepTicker struct {
	ticks     uint32
	frequency float64
	onTick    func()
}

func (s *stepTicker) Ticks() uint32 { return s.ticks }

func (s *stepTicker) SleepTicks(ctx context.Context, n uint32) error {
	for i := uint32(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.ticks++
		if s.onTick != nil {
			s.onTick()
		}
	}
	return nil
}

func (s *stepTicker) Frequency() float64 { return s.frequency }

// fakeWalls is a scriptable wall sensor.
type fakeWalls struct {
	left, right, front bool
	frontDistance      float64
}

func (w *fakeWalls) LeftWallDetected() bool     { return w.left }
func (w *fakeWalls) RightWallDetected() bool    { return w.right }
func (w *fakeWalls) FrontWallDetected() bool    { return w.front }
func (w *fakeWalls) FrontWallDistance() float64 { return w.frontDistance }

type mouseRig struct {
	mouse  *Mouse
	drive  *drivefake.Drive
	walls  *fakeWalls
	ticker *stepTicker
	led    *boardfake.LED
}

func newMouseRig(t *testing.T) *mouseRig {
	t.Helper()
	cfg := config.Default()
	drv := drivefake.New(cfg.Motion.LinearAcceleration, cfg.Motion.LinearDeceleration)
	ticker := &stepTicker{frequency: cfg.Motion.TickFrequency}
	period := 1 / cfg.Motion.TickFrequency
	ticker.onTick = func() { drv.Step(period) }
	drv.TickFunc = ticker.Ticks
	walls := &fakeWalls{frontDistance: math.NaN()}
	led := &boardfake.LED{}
	m := New(cfg, drv, drv, walls, ticker, led, golog.NewTestLogger(t))
	return &mouseRig{mouse: m, drive: drv, walls: walls, ticker: ticker, led: led}
}

func TestRequiredToSpeed(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse

	// no distance, time or ticks needed to reach the speed already targeted
	for _, v := range []float64{0, 0.4, 0.8} {
		rig.drive.SetTargetLinearSpeed(v)
		test.That(t, m.RequiredMicrometersToSpeed(v), test.ShouldEqual, 0)
		test.That(t, m.RequiredTimeToSpeed(v), test.ShouldEqual, 0)
		test.That(t, m.RequiredTicksToSpeed(v), test.ShouldEqual, 0)
	}

	// braking from 0.8 to rest at 5 m/s²: 64 mm, 160 ms
	rig.drive.SetTargetLinearSpeed(0.8)
	test.That(t, m.RequiredMicrometersToSpeed(0), test.ShouldEqual, 64000)
	test.That(t, m.RequiredTimeToSpeed(0), test.ShouldAlmostEqual, 0.16)
	test.That(t, m.RequiredTicksToSpeed(0), test.ShouldEqual, 160)

	// speeding up from 0.4 to 0.8 takes the same distance with equal magnitudes
	rig.drive.SetTargetLinearSpeed(0.4)
	test.That(t, m.RequiredMicrometersToSpeed(0.8), test.ShouldEqual, 48000)
	test.That(t, m.RequiredTimeToSpeed(0.8), test.ShouldAlmostEqual, 0.08)
}

func TestAccelerate(t *testing.T) {
	rig := newMouseRig(t)
	err := rig.mouse.Accelerate(context.Background(), 0, 0.18)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rig.drive.AverageMicrometers(), test.ShouldBeGreaterThanOrEqualTo, 180000)
	test.That(t, rig.drive.TargetLinearSpeed(), test.ShouldEqual, 0.8)
	test.That(t, rig.drive.TargetAngularSpeed(), test.ShouldEqual, 0)
}

func TestAccelerateCancel(t *testing.T) {
	rig := newMouseRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rig.mouse.Accelerate(ctx, 0, 0.18)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestDecelerate(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse

	err := m.Decelerate(context.Background(), 0, 0.18, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rig.drive.TargetLinearSpeed(), test.ShouldEqual, 0)

	// full speed held until the braking cutover, then the final speed
	changes := rig.drive.LinearChanges()
	test.That(t, len(changes), test.ShouldEqual, 2)
	test.That(t, changes[0].Value, test.ShouldEqual, 0.8)
	test.That(t, changes[1].Value, test.ShouldEqual, 0)
	// the second settle point waits out the nominal braking time
	test.That(t, rig.ticker.Ticks()-changes[1].Ticks, test.ShouldEqual, 160)
}

func TestTurnBudgets(t *testing.T) {
	// the split must not depend on where the tick counter starts
	for _, startPhase := range []uint32{0, 37, math.MaxUint32 - 50} {
		rig := newMouseRig(t)
		rig.ticker.ticks = startPhase

		err := rig.mouse.TurnLeft(context.Background())
		test.That(t, err, test.ShouldBeNil)

		changes := rig.drive.AngularChanges()
		test.That(t, len(changes), test.ShouldEqual, 2)
		test.That(t, changes[0].Value, test.ShouldAlmostEqual, -8*math.Pi)
		test.That(t, changes[0].Ticks, test.ShouldEqual, startPhase)
		test.That(t, changes[1].Value, test.ShouldEqual, 0)
		// spinning for exactly the first half of the budget
		test.That(t, changes[1].Ticks-startPhase, test.ShouldEqual, 88)
		test.That(t, rig.ticker.Ticks()-startPhase, test.ShouldEqual, 176)
	}
}

func TestTurnRightSpinsClockwise(t *testing.T) {
	rig := newMouseRig(t)
	err := rig.mouse.TurnRight(context.Background())
	test.That(t, err, test.ShouldBeNil)
	changes := rig.drive.AngularChanges()
	test.That(t, changes[0].Value, test.ShouldAlmostEqual, 8*math.Pi)
}

func TestEnteredNextCellCorrection(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	rig.drive.SetMicrometers(500000)

	// no front wall: the odometry mark stands as is
	m.enteredNextCell(ctx)
	test.That(t, m.cellStartMicrometers, test.ShouldEqual, 500000)
	test.That(t, m.CellShift(), test.ShouldEqual, 0)

	// front wall at exactly one cell away: zero correction
	rig.walls.front = true
	rig.walls.frontDistance = m.geometry.CellDimension
	m.enteredNextCell(ctx)
	test.That(t, m.cellStartMicrometers, test.ShouldEqual, 500000)

	// front wall a centimeter farther: the mark moves forward accordingly
	rig.walls.frontDistance = m.geometry.CellDimension + 0.01
	m.enteredNextCell(ctx)
	test.That(t, m.cellStartMicrometers, test.ShouldEqual, 510000)

	test.That(t, rig.led.Toggles(), test.ShouldEqual, 3)
}

func TestSetStartingPosition(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	rig.drive.SetMicrometers(123456)
	m.SetStartingPosition()
	test.That(t, m.cellStartMicrometers, test.ShouldEqual, 123456)
	test.That(t, m.CellShift(), test.ShouldAlmostEqual, 0.012/2+0.052)
}
