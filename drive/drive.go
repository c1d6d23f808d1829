// Package drive describes the low-level speed and attitude controller the
// motion planner commands, and the odometry it reads back. The actual
// controller runs elsewhere; this core only sets targets and flips control
// modes through these interfaces.
package drive

// An Odometer reports distance traveled. Readings are signed, monotonic
// while moving forward, and expressed in micrometers.
type Odometer interface {
	// AverageMicrometers returns the average traveled distance of both
	// wheels since power-on.
	AverageMicrometers() int64
}

// A Controller tracks target speeds and applies sensor-based corrections.
// Targets are desired values, not measured ones; the controller's own loop
// chases them within the configured acceleration limits.
type Controller interface {
	TargetLinearSpeed() float64
	SetTargetLinearSpeed(metersPerSec float64)

	TargetAngularSpeed() float64
	SetTargetAngularSpeed(radiansPerSec float64)

	// LinearAcceleration and LinearDeceleration return the magnitudes the
	// controller accelerates and brakes with, in m/s².
	LinearAcceleration() float64
	LinearDeceleration() float64

	// FrontSensorsControl and SideSensorsControl enable wall-based
	// corrective control. Only meaningful while driving straight.
	FrontSensorsControl(enabled bool)
	SideSensorsControl(enabled bool)

	// MotorControl enables or disables the whole motor control loop.
	MotorControl(enabled bool)

	// ResetControlErrors clears the accumulated control error state.
	ResetControlErrors()

	// ResetControlAll clears all controller state, including the targets.
	ResetControlAll()

	// DriveOff powers down the drive stage.
	DriveOff()
}
