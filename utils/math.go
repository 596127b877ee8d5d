package utils

import (
	"math"
	"time"
)

// Epsilon is the tolerance used by Float64AlmostEqual.
const Epsilon = 1e-9

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Clamp returns v limited to [lo, hi]. A NaN input is returned as lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Float64AlmostEqual compares two floats within Epsilon.
func Float64AlmostEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// WrapAngle maps an angle in radians to (-pi, pi].
func WrapAngle(theta float64) float64 {
	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta <= 0 {
		theta += 2 * math.Pi
	}
	return theta - math.Pi
}

// SecondsToDuration converts fractional seconds, as found in config files, to a time.Duration.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
