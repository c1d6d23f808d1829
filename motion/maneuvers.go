package motion

import "context"

// TurnLeft spins the mouse 90 degrees counterclockwise in place. The turn is
// open loop: a fixed tick budget spinning, then the same budget again at zero
// angular speed to settle, with no position feedback. The budgets come from
// the angular acceleration profile and are calibration inputs.
func (m *Mouse) TurnLeft(ctx context.Context) error {
	return m.spinTurn(ctx, -m.motion.TurnSpinSpeed)
}

// TurnRight spins the mouse 90 degrees clockwise in place.
func (m *Mouse) TurnRight(ctx context.Context) error {
	return m.spinTurn(ctx, m.motion.TurnSpinSpeed)
}

func (m *Mouse) spinTurn(ctx context.Context, angularSpeed float64) error {
	start := m.ticker.Ticks()
	m.drive.SetTargetAngularSpeed(angularSpeed)
	if err := m.sleepUntilTicksAfter(ctx, start, m.motion.SpinTurnTicks); err != nil {
		return err
	}
	m.drive.SetTargetAngularSpeed(0)
	return m.sleepUntilTicksAfter(ctx, start, 2*m.motion.SpinTurnTicks)
}

// StopEnd brakes to a stop at the end of the current cell and marks the next
// cell.
func (m *Mouse) StopEnd(ctx context.Context) error {
	m.enableWallsControl()
	if err := m.Decelerate(ctx, m.cellStartMicrometers, m.geometry.CellDimension, 0); err != nil {
		return err
	}
	m.DisableWallsControl()
	m.drive.ResetControlErrors()
	m.enteredNextCell(ctx)
	return nil
}

// StopHeadFrontWall brakes to a stop with the head of the mouse just short
// of the front wall.
func (m *Mouse) StopHeadFrontWall(ctx context.Context) error {
	distance := m.geometry.CellDimension - m.geometry.WallWidth/2 - m.geometry.MouseHead

	m.enableWallsControl()
	if err := m.Decelerate(ctx, m.cellStartMicrometers, distance, 0); err != nil {
		return err
	}
	m.DisableWallsControl()
	m.drive.ResetControlErrors()
	m.cellShift = distance
	return nil
}

// StopMiddle brakes to a stop at the middle of the current cell.
func (m *Mouse) StopMiddle(ctx context.Context) error {
	distance := m.geometry.CellDimension / 2

	m.enableWallsControl()
	if err := m.Decelerate(ctx, m.cellStartMicrometers, distance, 0); err != nil {
		return err
	}
	m.DisableWallsControl()
	m.drive.ResetControlErrors()
	m.cellShift = distance
	return nil
}

// MoveFront drives straight into the next cell.
func (m *Mouse) MoveFront(ctx context.Context) error {
	m.enableWallsControl()
	if err := m.Accelerate(ctx, m.cellStartMicrometers, m.geometry.CellDimension-m.cellShift); err != nil {
		return err
	}
	m.enteredNextCell(ctx)
	return nil
}

// moveOut leaves the current cell from wherever the mouse sits within it,
// entering the next cell. Used after in-cell turns, where the cell start
// mark no longer reflects the heading.
func (m *Mouse) moveOut(ctx context.Context) error {
	m.enableWallsControl()
	if err := m.Accelerate(ctx, m.odom.AverageMicrometers(), m.geometry.CellDimension-m.cellShift); err != nil {
		return err
	}
	m.enteredNextCell(ctx)
	return nil
}

// MoveLeft brakes into the turn entry point, turns left in place, and drives
// out into the next cell.
func (m *Mouse) MoveLeft(ctx context.Context) error {
	return m.moveTurn(ctx, m.TurnLeft)
}

// MoveRight brakes into the turn entry point, turns right in place, and
// drives out into the next cell.
func (m *Mouse) MoveRight(ctx context.Context) error {
	return m.moveTurn(ctx, m.TurnRight)
}

func (m *Mouse) moveTurn(ctx context.Context, turn func(context.Context) error) error {
	m.enableWallsControl()
	if err := m.Decelerate(ctx, m.cellStartMicrometers, m.motion.TurnEntryDistance, m.motion.TurnEntrySpeed); err != nil {
		return err
	}
	m.DisableWallsControl()
	if err := turn(ctx); err != nil {
		return err
	}
	m.enableWallsControl()
	if err := m.Accelerate(ctx, m.odom.AverageMicrometers(), m.motion.TurnEntryDistance); err != nil {
		return err
	}
	m.enteredNextCell(ctx)
	return nil
}

// MoveBack stops at the middle of the cell, turns around in place and drives
// back into the previous cell.
func (m *Mouse) MoveBack(ctx context.Context) error {
	if err := m.StopMiddle(ctx); err != nil {
		return err
	}
	if err := m.TurnRight(ctx); err != nil {
		return err
	}
	if err := m.TurnRight(ctx); err != nil {
		return err
	}
	return m.moveOut(ctx)
}
