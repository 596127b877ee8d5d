// Package spatialmath defines poses and the orientation math needed to move them between frames.
// Positions are in meters.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a position and a unit quaternion orientation.
type Pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return Pose{orientation: quat.Number{Real: 1}}
}

// NewPose builds a pose from a point and an orientation. The orientation is normalized, and a zero
// quaternion is read as no rotation.
func NewPose(pt r3.Vector, orientation quat.Number) Pose {
	return Pose{point: pt, orientation: normalize(orientation)}
}

// NewPoseFromPlanar builds a pose on the XY plane with heading theta (radians, CCW from +X).
func NewPoseFromPlanar(x, y, theta float64) Pose {
	return Pose{point: r3.Vector{X: x, Y: y}, orientation: QuatFromYaw(theta)}
}

// Point returns the position of the pose.
func (p Pose) Point() r3.Vector {
	return p.point
}

// Orientation returns the orientation quaternion.
func (p Pose) Orientation() quat.Number {
	if p.orientation == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return p.orientation
}

// Yaw returns the heading about +Z in radians.
func (p Pose) Yaw() float64 {
	return QuatToEuler(p.Orientation())[2]
}

func (p Pose) String() string {
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f Yaw:%.4f}", p.point.X, p.point.Y, p.point.Z, p.Yaw())
}

// Compose returns a∘b: b expressed in the frame that a is expressed in.
func Compose(a, b Pose) Pose {
	qa := a.Orientation()
	return Pose{
		point:       a.point.Add(rotate(qa, b.point)),
		orientation: normalize(quat.Mul(qa, b.Orientation())),
	}
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.Orientation())
	return Pose{
		point:       rotate(inv, p.point).Mul(-1),
		orientation: inv,
	}
}

// PoseBetween returns the pose of b relative to a, so that Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostEqual compares positions within epsilon meters and orientations within epsilon
// radians of yaw, roll and pitch.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	if a.point.Sub(b.point).Norm() > epsilon {
		return false
	}
	ea, eb := QuatToEuler(a.Orientation()), QuatToEuler(b.Orientation())
	for i := range ea {
		d := math.Remainder(ea[i]-eb[i], 2*math.Pi)
		if math.Abs(d) > epsilon {
			return false
		}
	}
	return true
}

// QuatFromYaw returns the unit quaternion for a rotation of yaw radians about +Z.
func QuatFromYaw(yaw float64) quat.Number {
	return quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
}

// QuatToEuler converts a rotation unit quaternion to roll, pitch and yaw in radians.
// See https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles
func QuatToEuler(q quat.Number) []float64 {
	w := q.Real
	x := q.Imag
	y := q.Jmag
	z := q.Kmag

	sinPitch := math.Max(-1, math.Min(1, 2*(w*y-x*z)))
	return []float64{
		math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		math.Asin(sinPitch),
		math.Atan2(2*(w*z+y*x), 1-2*(y*y+z*z)),
	}
}

func rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

func normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}
