// Package main fits per-sensor calibration pairs from a recorded front
// sensors calibration log. It consumes the JSON log lines the calibration
// runner emits, fits (a, b) of the model distance = a/ln(on-off) - b per
// sensor by least squares, and prints them as a config fragment.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/erizobot/erizo/calibration"
	"github.com/erizobot/erizo/config"
)

var logger = golog.NewDevelopmentLogger("sensorfit")

// Arguments for the command.
type Arguments struct {
	LogFile   string  `flag:"0,required,usage=recorded calibration log"`
	WallStart float64 `flag:"wall-start,default=0.36,usage=front wall distance at the start of the sweep (m)"`
	Plot      string  `flag:"plot,usage=write a fit plot to this PNG file"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	f, err := os.Open(argsParsed.LogFile)
	if err != nil {
		return errors.Wrap(err, "cannot open log")
	}
	defer f.Close()

	left, right, err := readSamples(f, argsParsed.WallStart)
	if err != nil {
		return err
	}
	logger.Infow("samples loaded", "left", len(left), "right", len(right))

	leftPair, err := fitPair(left)
	if err != nil {
		return errors.Wrap(err, "left sensor fit failed")
	}
	rightPair, err := fitPair(right)
	if err != nil {
		return errors.Wrap(err, "right sensor fit failed")
	}

	out, err := json.MarshalIndent(map[string]config.SensorPair{
		"front_left":  leftPair,
		"front_right": rightPair,
	}, "", "  ")
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(append(out, '\n')); err != nil {
		return err
	}

	if argsParsed.Plot != "" {
		return writePlot(argsParsed.Plot, left, leftPair, right, rightPair)
	}
	return nil
}

// A sample is one usable observation: the on/off gap of a sensor against the
// known wall distance at that moment.
type sample struct {
	delta    float64
	distance float64
}

// logRecord is the shape of one calibration log line. Either the raw pairs
// plus micrometers or pre-converted distances may be present.
type logRecord struct {
	Msg           string   `json:"msg"`
	LeftRawOff    float64  `json:"left_raw_off"`
	LeftRawOn     float64  `json:"left_raw_on"`
	RightRawOff   float64  `json:"right_raw_off"`
	RightRawOn    float64  `json:"right_raw_on"`
	Micrometers   *float64 `json:"micrometers"`
	LeftDistance  *float64 `json:"left_distance"`
	RightDistance *float64 `json:"right_distance"`
}

// readSamples parses the log, keeping only front sensors calibration records
// with a usable gap and a positive wall distance.
func readSamples(r io.Reader, wallStart float64) (left, right []sample, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // not a JSON record; skip console noise
		}
		if rec.Msg != calibration.FrontSensorsMessage {
			continue
		}

		var leftDist, rightDist float64
		switch {
		case rec.LeftDistance != nil && rec.RightDistance != nil:
			leftDist, rightDist = *rec.LeftDistance, *rec.RightDistance
		case rec.Micrometers != nil:
			d := wallStart - *rec.Micrometers/config.MicrometersPerMeter
			leftDist, rightDist = d, d
		default:
			continue
		}

		if s, ok := makeSample(rec.LeftRawOff, rec.LeftRawOn, leftDist); ok {
			left = append(left, s)
		}
		if s, ok := makeSample(rec.RightRawOff, rec.RightRawOn, rightDist); ok {
			right = append(right, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "cannot read log")
	}
	if len(left) == 0 && len(right) == 0 {
		return nil, nil, errors.New("no calibration records in log")
	}
	return left, right, nil
}

func makeSample(off, on, distance float64) (sample, bool) {
	delta := on - off
	// ln(delta) must be positive and the mouse still short of the wall
	if delta <= 1 || distance <= 0 {
		return sample{}, false
	}
	return sample{delta: delta, distance: distance}, true
}

// fitPair fits (a, b) by minimizing the residual sum of squares of the
// distance model over the samples.
func fitPair(samples []sample) (config.SensorPair, error) {
	if len(samples) < 3 {
		return config.SensorPair{}, errors.Errorf("need at least 3 samples, got %d", len(samples))
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			a, b := x[0], x[1]
			var sse float64
			for _, s := range samples {
				r := a/math.Log(s.delta) - b - s.distance
				sse += r * r
			}
			return sse
		},
	}
	result, err := optimize.Minimize(problem, []float64{1, 0}, nil, &optimize.NelderMead{})
	if err != nil {
		return config.SensorPair{}, err
	}
	if err := result.Status.Err(); err != nil {
		return config.SensorPair{}, err
	}
	pair := config.SensorPair{A: result.X[0], B: result.X[1]}
	if err := pair.Validate("fit"); err != nil {
		return config.SensorPair{}, err
	}
	return pair, nil
}

// writePlot renders both sensors' samples against their fitted curves.
func writePlot(path string, left []sample, leftPair config.SensorPair, right []sample, rightPair config.SensorPair) error {
	p := plot.New()
	p.Title.Text = "front sensors calibration fit"
	p.X.Label.Text = "on-off gap"
	p.Y.Label.Text = "distance (m)"

	add := func(samples []sample, pair config.SensorPair) error {
		xys := make(plotter.XYs, len(samples))
		for i, s := range samples {
			xys[i] = plotter.XY{X: s.delta, Y: s.distance}
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		curve := plotter.NewFunction(func(x float64) float64 {
			if x <= 1 {
				return math.NaN()
			}
			return pair.A/math.Log(x) - pair.B
		})
		p.Add(scatter, curve)
		return nil
	}
	if err := add(left, leftPair); err != nil {
		return err
	}
	if err := add(right, rightPair); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
