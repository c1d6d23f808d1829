package motion

import (
	"context"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestStopEnd(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	rig.walls.left = true
	m.SetStartingPosition()

	err := m.StopEnd(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rig.drive.TargetLinearSpeed(), test.ShouldEqual, 0)
	test.That(t, rig.drive.AverageMicrometers(), test.ShouldBeGreaterThanOrEqualTo, 116000)
	// corrections stop with the mouse
	test.That(t, rig.drive.SideControlEnabled(), test.ShouldBeFalse)
	test.That(t, rig.drive.FrontControlEnabled(), test.ShouldBeFalse)
	test.That(t, rig.drive.ErrorResets(), test.ShouldEqual, 1)
	// a new cell was entered
	test.That(t, m.CellShift(), test.ShouldEqual, 0)
}

func TestStopEndFrontWallCorrection(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	rig.walls.front = true
	rig.walls.frontDistance = m.geometry.CellDimension + 0.005
	m.SetStartingPosition()

	test.That(t, m.StopEnd(ctx), test.ShouldBeNil)
	test.That(t, m.cellStartMicrometers, test.ShouldEqual, rig.drive.AverageMicrometers()+5000)
}

func TestStopHeadFrontWall(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	m.SetStartingPosition()

	test.That(t, m.StopHeadFrontWall(ctx), test.ShouldBeNil)
	want := m.geometry.CellDimension - m.geometry.WallWidth/2 - m.geometry.MouseHead
	test.That(t, m.CellShift(), test.ShouldAlmostEqual, want)
	test.That(t, rig.drive.TargetLinearSpeed(), test.ShouldEqual, 0)
}

func TestStopMiddle(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	m.SetStartingPosition()

	test.That(t, m.StopMiddle(ctx), test.ShouldBeNil)
	test.That(t, m.CellShift(), test.ShouldAlmostEqual, m.geometry.CellDimension/2)
}

func TestMoveStopMatchesStopMiddle(t *testing.T) {
	stopRig := newMouseRig(t)
	stopRig.mouse.SetStartingPosition()
	test.That(t, stopRig.mouse.Move(context.Background(), Stop), test.ShouldBeNil)

	middleRig := newMouseRig(t)
	middleRig.mouse.SetStartingPosition()
	test.That(t, middleRig.mouse.StopMiddle(context.Background()), test.ShouldBeNil)

	test.That(t, stopRig.mouse.CellShift(), test.ShouldEqual, middleRig.mouse.CellShift())
}

func TestMoveFront(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	rig.walls.left = true
	m.SetStartingPosition()
	shift := m.CellShift()

	test.That(t, m.MoveFront(ctx), test.ShouldBeNil)
	traveled := float64(rig.drive.AverageMicrometers()) / 1e6
	test.That(t, traveled, test.ShouldBeGreaterThanOrEqualTo, m.geometry.CellDimension-shift)
	test.That(t, m.CellShift(), test.ShouldEqual, 0)
	// straight runs keep the corrective control running into the next cell
	test.That(t, rig.drive.SideControlEnabled(), test.ShouldBeTrue)
}

func TestMoveLeft(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	m.SetStartingPosition()

	test.That(t, m.Move(ctx, Left), test.ShouldBeNil)

	changes := rig.drive.AngularChanges()
	test.That(t, len(changes), test.ShouldEqual, 2)
	test.That(t, changes[0].Value, test.ShouldAlmostEqual, -8*math.Pi)
	test.That(t, changes[1].Value, test.ShouldEqual, 0)
	test.That(t, m.CellShift(), test.ShouldEqual, 0)
	// braked to the turn entry speed before spinning
	linear := rig.drive.LinearChanges()
	test.That(t, linear[1].Value, test.ShouldAlmostEqual, 0.666)
}

func TestMoveBack(t *testing.T) {
	rig := newMouseRig(t)
	m := rig.mouse
	ctx := context.Background()
	m.SetStartingPosition()

	test.That(t, m.Move(ctx, Back), test.ShouldBeNil)

	// two clockwise spins to come about
	var spins int
	for _, c := range rig.drive.AngularChanges() {
		if c.Value > 0 {
			spins++
		}
	}
	test.That(t, spins, test.ShouldEqual, 2)
	test.That(t, m.CellShift(), test.ShouldEqual, 0)
}

func TestResetMotion(t *testing.T) {
	rig := newMouseRig(t)
	rig.mouse.ResetMotion()
	test.That(t, rig.drive.MotorControlEnabled(), test.ShouldBeFalse)
	test.That(t, rig.drive.SideControlEnabled(), test.ShouldBeFalse)
	test.That(t, rig.drive.FrontControlEnabled(), test.ShouldBeFalse)
	test.That(t, rig.drive.PoweredDown(), test.ShouldBeTrue)
	test.That(t, rig.drive.AllResets(), test.ShouldEqual, 1)
}

func TestMoveDispatch(t *testing.T) {
	for _, tc := range []struct {
		direction Direction
		name      string
	}{
		{Left, "left"},
		{Right, "right"},
		{Front, "front"},
		{Back, "back"},
		{Stop, "stop"},
	} {
		rig := newMouseRig(t)
		rig.mouse.SetStartingPosition()
		test.That(t, tc.direction.String(), test.ShouldEqual, tc.name)
		test.That(t, rig.mouse.Move(context.Background(), tc.direction), test.ShouldBeNil)
	}
}
