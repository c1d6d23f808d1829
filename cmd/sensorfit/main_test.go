package main

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/erizobot/erizo/calibration"
)

// syntheticLog renders calibration records whose raw gaps follow the distance
// model exactly for the given pairs, sweeping from wallStart toward the wall.
func syntheticLog(wallStart, leftA, leftB, rightA, rightB float64) string {
	var sb strings.Builder
	sb.WriteString("console noise that is not JSON\n")
	sb.WriteString(`{"msg":"some other record","value":1}` + "\n")
	for traveled := 0.0; traveled < wallStart-0.02; traveled += 0.005 {
		d := wallStart - traveled
		leftDelta := math.Exp(leftA / (d + leftB))
		rightDelta := math.Exp(rightA / (d + rightB))
		fmt.Fprintf(&sb,
			`{"msg":%q,"left_raw_off":100,"left_raw_on":%f,"right_raw_off":80,"right_raw_on":%f,"micrometers":%f}`+"\n",
			calibration.FrontSensorsMessage,
			100+leftDelta, 80+rightDelta, traveled*1e6,
		)
	}
	return sb.String()
}

func TestReadSamples(t *testing.T) {
	log := syntheticLog(0.36, 0.6, 0.05, 0.55, 0.04)
	left, right, err := readSamples(strings.NewReader(log), 0.36)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(left), test.ShouldBeGreaterThan, 10)
	test.That(t, len(left), test.ShouldEqual, len(right))

	// distances shrink as the mouse advances
	test.That(t, left[0].distance, test.ShouldAlmostEqual, 0.36)
	test.That(t, left[len(left)-1].distance, test.ShouldBeLessThan, left[0].distance)
}

func TestReadSamplesEmpty(t *testing.T) {
	_, _, err := readSamples(strings.NewReader("not json\n"), 0.36)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no calibration records")
}

func TestFitRecoversCoefficients(t *testing.T) {
	log := syntheticLog(0.36, 0.6, 0.05, 0.55, 0.04)
	left, right, err := readSamples(strings.NewReader(log), 0.36)
	test.That(t, err, test.ShouldBeNil)

	leftPair, err := fitPair(left)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, leftPair.A, test.ShouldAlmostEqual, 0.6, 1e-3)
	test.That(t, leftPair.B, test.ShouldAlmostEqual, 0.05, 1e-3)

	rightPair, err := fitPair(right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rightPair.A, test.ShouldAlmostEqual, 0.55, 1e-3)
	test.That(t, rightPair.B, test.ShouldAlmostEqual, 0.04, 1e-3)
}

func TestFitTooFewSamples(t *testing.T) {
	_, err := fitPair([]sample{{delta: 10, distance: 0.1}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 3 samples")
}

func TestMakeSample(t *testing.T) {
	_, ok := makeSample(100, 100.5, 0.1) // gap too small for ln
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = makeSample(100, 300, -0.01) // already past the wall
	test.That(t, ok, test.ShouldBeFalse)

	s, ok := makeSample(100, 300, 0.1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s.delta, test.ShouldEqual, 200)
}
