package purepursuit

import (
	"github.com/golang/geo/r3"
)

// Synthesis is the raw command toward a carrot and the geometry that produced it.
type Synthesis struct {
	Linear         float64
	Angular        float64
	CarrotDistance float64
	Curvature      float64
}

// Synthesize steers toward a carrot given in the robot frame. Linear speed stays at desired; sharp
// turns only raise the angular rate, which the limiter later bounds.
func Synthesize(carrot r3.Vector, desired float64) Synthesis {
	dist := Norm(carrot)
	curvature := Curvature(carrot.Y, dist)
	return Synthesis{
		Linear:         desired,
		Angular:        desired * curvature,
		CarrotDistance: dist,
		Curvature:      curvature,
	}
}
