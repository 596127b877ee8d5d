package inject

import (
	"context"

	"go.viam.com/pursuit/costmap"
)

// Costmap is an injectable costmap.Costmap.
type Costmap struct {
	costmap.Costmap
	ResolutionFunc      func() float64
	SizeInCellsFunc     func() (int, int)
	CostFunc            func(ctx context.Context, x, y float64) (uint8, bool, error)
	GlobalFrameFunc     func() string
	BaseFrameFunc       func() string
	TrackingUnknownFunc func() bool
}

// Resolution calls the injected ResolutionFunc or the real variant.
func (c *Costmap) Resolution() float64 {
	if c.ResolutionFunc == nil {
		return c.Costmap.Resolution()
	}
	return c.ResolutionFunc()
}

// SizeInCells calls the injected SizeInCellsFunc or the real variant.
func (c *Costmap) SizeInCells() (int, int) {
	if c.SizeInCellsFunc == nil {
		return c.Costmap.SizeInCells()
	}
	return c.SizeInCellsFunc()
}

// Cost calls the injected CostFunc or the real variant.
func (c *Costmap) Cost(ctx context.Context, x, y float64) (uint8, bool, error) {
	if c.CostFunc == nil {
		return c.Costmap.Cost(ctx, x, y)
	}
	return c.CostFunc(ctx, x, y)
}

// GlobalFrame calls the injected GlobalFrameFunc or the real variant.
func (c *Costmap) GlobalFrame() string {
	if c.GlobalFrameFunc == nil {
		return c.Costmap.GlobalFrame()
	}
	return c.GlobalFrameFunc()
}

// BaseFrame calls the injected BaseFrameFunc or the real variant.
func (c *Costmap) BaseFrame() string {
	if c.BaseFrameFunc == nil {
		return c.Costmap.BaseFrame()
	}
	return c.BaseFrameFunc()
}

// TrackingUnknown calls the injected TrackingUnknownFunc or the real variant.
func (c *Costmap) TrackingUnknown() bool {
	if c.TrackingUnknownFunc == nil {
		return c.Costmap.TrackingUnknown()
	}
	return c.TrackingUnknownFunc()
}
