package detection

import "context"

// phase is one step of the per-sensor sampling rotation. One sensor is
// serviced across four consecutive ticks; serializing the emitters this way
// avoids optical cross-talk between neighboring sensors, and requesting
// conversions one phase ahead hides the conversion latency.
type phase int

const (
	// capture the pending off reading, then arm the emitter. The battery
	// conversion is also kicked off here, overlapped with the capture.
	phaseCaptureOffArmEmitter phase = iota

	// request the phototransistor conversion, now illuminated.
	phaseRequestOnConversion

	// capture the on reading, then disarm the emitter.
	phaseCaptureOnDisarmEmitter

	// request the next off conversion and advance to the next sensor.
	phaseRequestOffAdvance
)

// CycleTicksPerSensor is how many ticks one sensor's off/on pair takes.
const CycleTicksPerSensor = 4

// CycleTicksPerRound is how many ticks a full round over all sensors takes;
// distances are fresh once per round.
const CycleTicksPerRound = CycleTicksPerSensor * NumSensors

// step advances the cycle by one phase. Hardware errors are logged and leave
// the previous raw value in place; the next round recomputes everything,
// which is the only recovery this cycle needs.
func (s *Sensors) step(ctx context.Context) {
	switch s.phase {
	case phaseCaptureOffArmEmitter:
		if err := s.hw.Battery.StartConversion(ctx); err != nil {
			s.logger.Debugw("battery conversion start failed", "error", err)
		}
		if v, err := s.hw.Photo[s.active].Read(ctx); err != nil {
			s.logger.Debugw("off capture failed", "sensor", s.active, "error", err)
		} else {
			s.rawOff[s.active].Store(uint32(v))
		}
		s.setEmitter(ctx, s.active, true)
		s.phase = phaseRequestOnConversion
	case phaseRequestOnConversion:
		if err := s.hw.Photo[s.active].StartConversion(ctx); err != nil {
			s.logger.Debugw("on conversion start failed", "sensor", s.active, "error", err)
		}
		s.phase = phaseCaptureOnDisarmEmitter
	case phaseCaptureOnDisarmEmitter:
		if v, err := s.hw.Photo[s.active].Read(ctx); err != nil {
			s.logger.Debugw("on capture failed", "sensor", s.active, "error", err)
		} else {
			s.rawOn[s.active].Store(uint32(v))
		}
		s.setEmitter(ctx, s.active, false)
		s.phase = phaseRequestOffAdvance
	case phaseRequestOffAdvance:
		next := (s.active + 1) % NumSensors
		if err := s.hw.Photo[next].StartConversion(ctx); err != nil {
			s.logger.Debugw("off conversion start failed", "sensor", next, "error", err)
		}
		if s.active == NumSensors-1 {
			s.updateDistances()
		}
		s.active = next
		s.phase = phaseCaptureOffArmEmitter
	}
}

func (s *Sensors) setEmitter(ctx context.Context, id SensorID, on bool) {
	if err := s.hw.Emitters[id].Set(ctx, on); err != nil {
		s.logger.Debugw("emitter set failed", "sensor", id, "on", on, "error", err)
	}
}
