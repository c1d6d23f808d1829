// Package config describes the mouse configuration: maze and body geometry,
// fitted sensor calibration pairs, motion constants and hardware naming.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// MicrometersPerMeter converts between odometry units and meters.
const MicrometersPerMeter = 1e6

// A SensorPair holds the fitted (a, b) calibration coefficients of one
// infrared sensor, for the distance model a/ln(on-off) - b.
type SensorPair struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Validate ensures the pair is usable.
func (p *SensorPair) Validate(path string) error {
	if p.A <= 0 {
		return errors.Errorf("%s: calibration coefficient a must be positive, got %f", path, p.A)
	}
	if math.IsNaN(p.B) || math.IsInf(p.B, 0) {
		return errors.Errorf("%s: calibration coefficient b must be finite", path)
	}
	return nil
}

// A SensorsConfig holds a calibration pair for each of the four sensors.
type SensorsConfig struct {
	SideLeft   SensorPair `json:"side_left"`
	SideRight  SensorPair `json:"side_right"`
	FrontLeft  SensorPair `json:"front_left"`
	FrontRight SensorPair `json:"front_right"`
}

// Validate ensures all four pairs are usable.
func (c *SensorsConfig) Validate(path string) error {
	var err error
	err = multierr.Append(err, c.SideLeft.Validate(fmt.Sprintf("%s.side_left", path)))
	err = multierr.Append(err, c.SideRight.Validate(fmt.Sprintf("%s.side_right", path)))
	err = multierr.Append(err, c.FrontLeft.Validate(fmt.Sprintf("%s.front_left", path)))
	err = multierr.Append(err, c.FrontRight.Validate(fmt.Sprintf("%s.front_right", path)))
	return err
}

// A GeometryConfig holds maze and mouse dimensions, in meters.
type GeometryConfig struct {
	// CellDimension is the side of one maze cell.
	CellDimension float64 `json:"cell_dimension"`

	// WallWidth is the thickness of a maze wall.
	WallWidth float64 `json:"wall_width"`

	// MouseHead is the distance from the center of the mouse to its head.
	MouseHead float64 `json:"mouse_head"`

	// MouseTail is the distance from the center of the mouse to its tail.
	MouseTail float64 `json:"mouse_tail"`

	// MiddleMazeDistance is the side-sensor distance measured when the
	// mouse is centered in a corridor.
	MiddleMazeDistance float64 `json:"middle_maze_distance"`
}

// Validate ensures the geometry is usable.
func (c *GeometryConfig) Validate(path string) error {
	var err error
	if c.CellDimension <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: cell_dimension must be positive", path))
	}
	if c.WallWidth <= 0 || c.WallWidth >= c.CellDimension {
		err = multierr.Append(err, errors.Errorf("%s: wall_width must be positive and smaller than the cell", path))
	}
	if c.MouseHead <= 0 || c.MouseTail <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: mouse head and tail lengths must be positive", path))
	}
	if c.MiddleMazeDistance <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: middle_maze_distance must be positive", path))
	}
	return err
}

// A MotionConfig holds the kinematic constants. The acceleration and
// deceleration magnitudes are owned by the low-level controller and only
// mirrored here for the fake drive and the profiling routines.
type MotionConfig struct {
	// MaxLinearSpeed is the speed straight runs accelerate toward, in m/s.
	// Runtime adjustable through the motion controller.
	MaxLinearSpeed float64 `json:"max_linear_speed"`

	// LinearAcceleration and LinearDeceleration are magnitudes, in m/s².
	LinearAcceleration float64 `json:"linear_acceleration"`
	LinearDeceleration float64 `json:"linear_deceleration"`

	// TickFrequency is the system tick rate, in Hz.
	TickFrequency float64 `json:"tick_frequency"`

	// TurnSpinSpeed is the angular speed commanded during in-place turns,
	// in rad/s.
	TurnSpinSpeed float64 `json:"turn_spin_speed"`

	// SpinTurnTicks is the tick budget of the spinning half of an in-place
	// turn; the settle half takes the same budget again. Calibrated
	// against the angular acceleration profile, not derived.
	SpinTurnTicks uint32 `json:"spin_turn_ticks"`

	// TurnEntryDistance and TurnEntrySpeed shape the braking segment that
	// precedes an in-cell turn.
	TurnEntryDistance float64 `json:"turn_entry_distance"`
	TurnEntrySpeed    float64 `json:"turn_entry_speed"`
}

// Validate ensures the motion constants are usable.
func (c *MotionConfig) Validate(path string) error {
	var err error
	if c.MaxLinearSpeed <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: max_linear_speed must be positive", path))
	}
	if c.LinearAcceleration <= 0 || c.LinearDeceleration <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: acceleration magnitudes must be positive", path))
	}
	if c.TickFrequency <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: tick_frequency must be positive", path))
	}
	if c.TurnSpinSpeed == 0 {
		err = multierr.Append(err, errors.Errorf("%s: turn_spin_speed must be nonzero", path))
	}
	if c.SpinTurnTicks == 0 {
		err = multierr.Append(err, errors.Errorf("%s: spin_turn_ticks must be positive", path))
	}
	if c.TurnEntryDistance <= 0 || c.TurnEntrySpeed <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: turn entry distance and speed must be positive", path))
	}
	return err
}

// A BoardConfig names the hardware the sensing cycle drives.
type BoardConfig struct {
	// SPIDevice is the bus the analog converter hangs off of.
	SPIDevice string `json:"spi_device"`

	// EmitterPins maps sensor names (side_left, side_right, front_left,
	// front_right) to GPIO pin names.
	EmitterPins map[string]string `json:"emitter_pins"`

	// PhotoChannels maps sensor names to converter channel numbers.
	PhotoChannels map[string]int `json:"photo_channels"`

	// BatteryChannel is the converter channel of the battery divider.
	BatteryChannel int `json:"battery_channel"`

	// LEDPin is the status LED, if any.
	LEDPin string `json:"led_pin,omitempty"`
}

// SensorNames lists the four sensor identities every name map must cover.
var SensorNames = []string{"side_left", "side_right", "front_left", "front_right"}

// Validate ensures every sensor has a pin and a channel.
func (c *BoardConfig) Validate(path string) error {
	var err error
	if c.SPIDevice == "" {
		err = multierr.Append(err, errors.Errorf("%s: spi_device is required", path))
	}
	for _, name := range SensorNames {
		if _, ok := c.EmitterPins[name]; !ok {
			err = multierr.Append(err, errors.Errorf("%s: emitter_pins missing %q", path, name))
		}
		if _, ok := c.PhotoChannels[name]; !ok {
			err = multierr.Append(err, errors.Errorf("%s: photo_channels missing %q", path, name))
		}
	}
	return err
}

// A Config is the whole mouse configuration.
type Config struct {
	Geometry GeometryConfig `json:"geometry"`
	Sensors  SensorsConfig  `json:"sensors"`
	Motion   MotionConfig   `json:"motion"`
	Board    BoardConfig    `json:"board"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	return multierr.Combine(
		c.Geometry.Validate("geometry"),
		c.Sensors.Validate("sensors"),
		c.Motion.Validate("motion"),
		c.Board.Validate("board"),
	)
}

// Read loads and validates a config from a JSON file.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration of the reference build. Sensor pairs come
// from the last sensorfit run against the reference mouse.
func Default() *Config {
	return &Config{
		Geometry: GeometryConfig{
			CellDimension:      0.18,
			WallWidth:          0.012,
			MouseHead:          0.020,
			MouseTail:          0.052,
			MiddleMazeDistance: 0.08,
		},
		Sensors: SensorsConfig{
			SideLeft:   SensorPair{A: 0.611, B: 0.0516},
			SideRight:  SensorPair{A: 0.596, B: 0.0490},
			FrontLeft:  SensorPair{A: 0.647, B: 0.0556},
			FrontRight: SensorPair{A: 0.621, B: 0.0533},
		},
		Motion: MotionConfig{
			MaxLinearSpeed:     0.8,
			LinearAcceleration: 5.0,
			LinearDeceleration: 5.0,
			TickFrequency:      1000,
			TurnSpinSpeed:      8 * math.Pi,
			SpinTurnTicks:      88,
			TurnEntryDistance:  0.02,
			TurnEntrySpeed:     0.666,
		},
		Board: BoardConfig{
			SPIDevice: "/dev/spidev0.0",
			EmitterPins: map[string]string{
				"side_left":   "GPIO9",
				"side_right":  "GPIO8",
				"front_left":  "GPIO10",
				"front_right": "GPIO11",
			},
			PhotoChannels: map[string]int{
				"side_left":   0,
				"side_right":  1,
				"front_left":  2,
				"front_right": 3,
			},
			BatteryChannel: 7,
			LEDPin:         "GPIO25",
		},
	}
}
