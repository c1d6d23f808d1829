package motion

import (
	"context"

	"github.com/erizobot/erizo/config"
)

// signedAcceleration selects the acceleration the drive will apply to reach
// speed from the current linear target: the deceleration magnitude, negated,
// when slowing down, else the acceleration magnitude.
func (m *Mouse) signedAcceleration(speed float64) float64 {
	if m.drive.TargetLinearSpeed() > speed {
		return -m.drive.LinearDeceleration()
	}
	return m.drive.LinearAcceleration()
}

// RequiredMicrometersToSpeed returns the signed distance needed to reach the
// given speed, assuming the mouse currently moves at the target speed.
func (m *Mouse) RequiredMicrometersToSpeed(speed float64) int64 {
	target := m.drive.TargetLinearSpeed()
	acceleration := m.signedAcceleration(speed)
	return int64((speed*speed - target*target) / (2 * acceleration) * config.MicrometersPerMeter)
}

// RequiredTimeToSpeed returns the time needed to reach the given speed, in
// seconds, assuming the mouse currently moves at the target speed.
func (m *Mouse) RequiredTimeToSpeed(speed float64) float64 {
	target := m.drive.TargetLinearSpeed()
	return (speed - target) / m.signedAcceleration(speed)
}

// RequiredTicksToSpeed returns the tick count needed to reach the given
// speed, assuming the mouse currently moves at the target speed.
func (m *Mouse) RequiredTicksToSpeed(speed float64) uint32 {
	return uint32(m.RequiredTimeToSpeed(speed) * m.ticker.Frequency())
}

// sleepUntilTicksAfter yields until offset ticks have elapsed since start.
// Tick counts wrap; the comparison is by unsigned difference.
func (m *Mouse) sleepUntilTicksAfter(ctx context.Context, start, offset uint32) error {
	for m.ticker.Ticks()-start < offset {
		if err := m.ticker.SleepTicks(ctx, 1); err != nil {
			return err
		}
	}
	return nil
}

// sleepUntilMicrometers yields until the odometry reaches the target
// position. The wait has no timeout: the drive is already commanded and the
// odometer only advances with physical motion.
func (m *Mouse) sleepUntilMicrometers(ctx context.Context, target int64) error {
	for m.odom.AverageMicrometers() < target {
		if err := m.ticker.SleepTicks(ctx, 1); err != nil {
			return err
		}
	}
	return nil
}

// Accelerate commands full speed straight ahead and yields until the mouse
// has traveled distance meters past start.
func (m *Mouse) Accelerate(ctx context.Context, start int64, distance float64) error {
	target := start + int64(distance*config.MicrometersPerMeter)
	m.drive.SetTargetAngularSpeed(0)
	m.drive.SetTargetLinearSpeed(m.maxLinearSpeed.Load())
	return m.sleepUntilMicrometers(ctx, target)
}

// Decelerate travels distance meters past start and comes out of it at the
// given speed: it holds full speed until the position where braking must
// begin, cuts the target to the final speed there, then waits out the ticks
// the braking nominally takes, a settle point the sensors cannot disturb.
func (m *Mouse) Decelerate(ctx context.Context, start int64, distance, speed float64) error {
	m.drive.SetTargetAngularSpeed(0)
	m.drive.SetTargetLinearSpeed(m.maxLinearSpeed.Load())
	brakingTicks := m.RequiredTicksToSpeed(speed)
	cutover := start + int64(distance*config.MicrometersPerMeter) - m.RequiredMicrometersToSpeed(speed)
	if err := m.sleepUntilMicrometers(ctx, cutover); err != nil {
		return err
	}
	m.drive.SetTargetLinearSpeed(speed)
	return m.sleepUntilTicksAfter(ctx, m.ticker.Ticks(), brakingTicks)
}
