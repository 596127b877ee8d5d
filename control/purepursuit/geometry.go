// Package purepursuit implements a pure pursuit path-tracking controller. Each tick it windows the
// held path around the robot, picks a carrot at the lookahead distance, steers toward it along a
// circular arc, limits the result to the robot's kinematics and vetoes it if the segment to the
// carrot crosses a lethal cell of the cost grid.
package purepursuit

import (
	"math"

	"github.com/golang/geo/r3"
)

// curvatureEpsilon is the chord length below which Curvature reports a straight line.
const curvatureEpsilon = 0.001

// Distance is the planar distance between two points. Z is ignored.
func Distance(a, b r3.Vector) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Norm is the planar distance of p from the origin.
func Norm(p r3.Vector) float64 {
	return math.Hypot(p.X, p.Y)
}

// Curvature of the arc through the origin, tangent to the X axis, that ends at a point with the
// given lateral offset and chord length: 2*lateral/chord^2.
//
// Chords shorter than a millimeter return 0. That is a smoothing choice and not the true
// curvature, which grows without bound as the point approaches the robot.
func Curvature(lateralOffset, chordLength float64) float64 {
	if chordLength < curvatureEpsilon {
		return 0
	}
	return 2 * lateralOffset / (chordLength * chordLength)
}
