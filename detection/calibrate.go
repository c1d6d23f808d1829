package detection

import "context"

// sideCalibrationReadings is the averaging window of one calibration run.
const sideCalibrationReadings = 20

// CalibrateSideSensors re-estimates the side-sensor drift offsets. The mouse
// must sit centered in a corridor with both side walls present: the routine
// averages both side distances over a fixed window and adds each mean's
// deviation from the corridor-center distance to that side's offset.
//
// Offsets accumulate across calls and are never reset here; running this in
// an off-center corridor pushes them further off with every call. Use
// ResetDriftOffsets to start over between runs.
func (s *Sensors) CalibrateSideSensors(ctx context.Context) error {
	var left, right float64
	for i := 0; i < sideCalibrationReadings; i++ {
		left += s.Distance(SideLeft)
		right += s.Distance(SideRight)
		if err := s.ticker.SleepTicks(ctx, CycleTicksPerSensor); err != nil {
			return err
		}
	}
	s.drift[SideLeft].Add(left/sideCalibrationReadings - s.middleMazeDistance)
	s.drift[SideRight].Add(right/sideCalibrationReadings - s.middleMazeDistance)
	s.logger.Infow("side sensors calibrated",
		"left_offset", s.drift[SideLeft].Load(),
		"right_offset", s.drift[SideRight].Load(),
	)
	return nil
}

// ResetDriftOffsets zeroes both side drift offsets.
func (s *Sensors) ResetDriftOffsets() {
	s.drift[SideLeft].Store(0)
	s.drift[SideRight].Store(0)
}
