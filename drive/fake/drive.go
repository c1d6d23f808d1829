// Package fake implements a drive controller whose odometry integrates the
// commanded targets, so motion code can run against it deterministically.
package fake

import "sync"

// A SpeedChange records one target-speed transition and when it happened.
type SpeedChange struct {
	Ticks uint32
	Value float64
}

// A Drive is a fake low-level controller and odometer. Target speeds take
// effect instantly; Step integrates the linear target into the odometer.
type Drive struct {
	mu sync.Mutex

	linear  float64
	angular float64
	accel   float64
	decel   float64

	micrometers float64

	front       bool
	side        bool
	motor       bool
	poweredDown bool

	errorResets int
	allResets   int

	linearChanges  []SpeedChange
	angularChanges []SpeedChange

	// TickFunc, when set, stamps recorded speed changes.
	TickFunc func() uint32
}

// New returns a fake drive with the given acceleration magnitudes.
func New(accel, decel float64) *Drive {
	return &Drive{accel: accel, decel: decel, motor: true}
}

func (d *Drive) stamp() uint32 {
	if d.TickFunc == nil {
		return 0
	}
	return d.TickFunc()
}

// Step advances the odometer by the current linear target over dt seconds.
func (d *Drive) Step(dtSeconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.micrometers += d.linear * dtSeconds * 1e6
}

// AverageMicrometers returns the integrated travel.
func (d *Drive) AverageMicrometers() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.micrometers)
}

// SetMicrometers positions the odometer directly.
func (d *Drive) SetMicrometers(v int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.micrometers = float64(v)
}

// TargetLinearSpeed returns the current linear target.
func (d *Drive) TargetLinearSpeed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linear
}

// SetTargetLinearSpeed records and applies the new linear target.
func (d *Drive) SetTargetLinearSpeed(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v != d.linear {
		d.linearChanges = append(d.linearChanges, SpeedChange{Ticks: d.stamp(), Value: v})
	}
	d.linear = v
}

// TargetAngularSpeed returns the current angular target.
func (d *Drive) TargetAngularSpeed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.angular
}

// SetTargetAngularSpeed records and applies the new angular target.
func (d *Drive) SetTargetAngularSpeed(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v != d.angular {
		d.angularChanges = append(d.angularChanges, SpeedChange{Ticks: d.stamp(), Value: v})
	}
	d.angular = v
}

// LinearAcceleration returns the acceleration magnitude.
func (d *Drive) LinearAcceleration() float64 { return d.accel }

// LinearDeceleration returns the deceleration magnitude.
func (d *Drive) LinearDeceleration() float64 { return d.decel }

// FrontSensorsControl flips front-wall corrective control.
func (d *Drive) FrontSensorsControl(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.front = enabled
}

// SideSensorsControl flips side-wall corrective control.
func (d *Drive) SideSensorsControl(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.side = enabled
}

// MotorControl flips the motor control loop.
func (d *Drive) MotorControl(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.motor = enabled
}

// ResetControlErrors counts the reset.
func (d *Drive) ResetControlErrors() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorResets++
}

// ResetControlAll counts the reset and clears the targets.
func (d *Drive) ResetControlAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allResets++
	d.linear = 0
	d.angular = 0
}

// DriveOff marks the drive stage as powered down.
func (d *Drive) DriveOff() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poweredDown = true
}

// FrontControlEnabled reports the front corrective control state.
func (d *Drive) FrontControlEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.front
}

// SideControlEnabled reports the side corrective control state.
func (d *Drive) SideControlEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.side
}

// MotorControlEnabled reports the motor control loop state.
func (d *Drive) MotorControlEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.motor
}

// PoweredDown reports whether DriveOff has been called.
func (d *Drive) PoweredDown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poweredDown
}

// ErrorResets returns how many times ResetControlErrors has been called.
func (d *Drive) ErrorResets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errorResets
}

// AllResets returns how many times ResetControlAll has been called.
func (d *Drive) AllResets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allResets
}

// LinearChanges returns every linear target transition, in order.
func (d *Drive) LinearChanges() []SpeedChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SpeedChange, len(d.linearChanges))
	copy(out, d.linearChanges)
	return out
}

// AngularChanges returns every angular target transition, in order.
func (d *Drive) AngularChanges() []SpeedChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SpeedChange, len(d.angularChanges))
	copy(out, d.angularChanges)
	return out
}
