// Package costmap defines the 2-D cost grid the controller reads and an in-memory implementation.
package costmap

import (
	"context"
	"math"
)

// Cell costs with a fixed meaning.
const (
	FreeSpace                 uint8 = 0
	InscribedInflatedObstacle uint8 = 253
	LethalObstacle            uint8 = 254
	NoInformation             uint8 = 255
)

// Costmap is a 2-D occupancy cost grid. Cost takes world coordinates in GlobalFrame and reports
// whether the point falls inside the grid.
type Costmap interface {
	Resolution() float64
	SizeInCells() (x, y int)
	Cost(ctx context.Context, x, y float64) (cost uint8, inBounds bool, err error)
	GlobalFrame() string
	BaseFrame() string
	TrackingUnknown() bool
}

// WindowRadius is half the diagonal extent of the grid, in meters.
func WindowRadius(cm Costmap) float64 {
	x, y := cm.SizeInCells()
	res := cm.Resolution()
	return math.Hypot(float64(x)*res, float64(y)*res) / 2
}
