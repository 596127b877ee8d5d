// Package gps holds the samples exchanged by the GPS waypoint tools: position fixes, IMU
// orientations and the synchronized pairs built from them.
package gps

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/pursuit/spatialmath"
)

// Fix is a single GPS position.
type Fix struct {
	Stamp     time.Time `json:"stamp"`
	Latitude  float64   `json:"lat"` // decimal degrees
	Longitude float64   `json:"lon"` // decimal degrees
	Altitude  float64   `json:"alt"` // meters above mean sea level
}

// Orientation is an IMU attitude as a unit quaternion in an east-north-up frame.
type Orientation struct {
	Stamp time.Time `json:"stamp"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Z     float64   `json:"z"`
	W     float64   `json:"w"`
}

// NewOrientationFromYaw returns the orientation of a level IMU heading yaw radians CCW from east.
func NewOrientationFromYaw(stamp time.Time, yaw float64) Orientation {
	q := spatialmath.QuatFromYaw(yaw)
	return Orientation{Stamp: stamp, X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

// Quaternion returns the orientation as a quaternion.
func (o Orientation) Quaternion() quat.Number {
	return quat.Number{Real: o.W, Imag: o.X, Jmag: o.Y, Kmag: o.Z}
}

// Yaw returns the rotation about the up axis in radians.
func (o Orientation) Yaw() float64 {
	return spatialmath.QuatToEuler(o.Quaternion())[2]
}

// Sample is a fix paired with the orientation measured closest to it.
type Sample struct {
	Fix         Fix         `json:"fix"`
	Orientation Orientation `json:"orientation"`
}

// Stamp is the later of the fix and orientation stamps.
func (s Sample) Stamp() time.Time {
	if s.Orientation.Stamp.After(s.Fix.Stamp) {
		return s.Orientation.Stamp
	}
	return s.Fix.Stamp
}

// Waypoint formats the sample as the named waypoint entry of a follower config.
func (s Sample) Waypoint(index int) string {
	return fmt.Sprintf("gps_waypoint%d: %.8f, %.8f, %.8f, %.8f",
		index, s.Fix.Latitude, s.Fix.Longitude, s.Fix.Altitude, s.Orientation.Yaw())
}
