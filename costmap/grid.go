package costmap

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
)

// GridConfig describes an in-memory grid.
type GridConfig struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Resolution      float64 `json:"resolution"`
	OriginX         float64 `json:"origin_x"`
	OriginY         float64 `json:"origin_y"`
	GlobalFrame     string  `json:"global_frame"`
	BaseFrame       string  `json:"base_frame"`
	TrackingUnknown bool    `json:"track_unknown_space"`
}

// Validate ensures all parts of the config are valid.
func (cfg *GridConfig) Validate(path string) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.Errorf("%s: grid size must be positive, got %dx%d", path, cfg.Width, cfg.Height)
	}
	if !(cfg.Resolution > 0) {
		return errors.Errorf("%s: resolution must be positive, got %v", path, cfg.Resolution)
	}
	if cfg.GlobalFrame == "" {
		return errors.Errorf("%s: global_frame is required", path)
	}
	if cfg.BaseFrame == "" {
		return errors.Errorf("%s: base_frame is required", path)
	}
	return nil
}

// Grid is a row-major cost grid whose cell (0, 0) has its lower-left corner at the origin.
type Grid struct {
	mu    sync.RWMutex
	cfg   GridConfig
	cells []uint8
}

// NewGrid returns a grid with every cell set to fill.
func NewGrid(cfg GridConfig, fill uint8) (*Grid, error) {
	if err := cfg.Validate("grid"); err != nil {
		return nil, err
	}
	cells := make([]uint8, cfg.Width*cfg.Height)
	for i := range cells {
		cells[i] = fill
	}
	return &Grid{cfg: cfg, cells: cells}, nil
}

// Resolution returns meters per cell.
func (g *Grid) Resolution() float64 { return g.cfg.Resolution }

// SizeInCells returns the grid dimensions.
func (g *Grid) SizeInCells() (int, int) { return g.cfg.Width, g.cfg.Height }

// GlobalFrame returns the frame grid coordinates are expressed in.
func (g *Grid) GlobalFrame() string { return g.cfg.GlobalFrame }

// BaseFrame returns the robot frame the grid is centered on.
func (g *Grid) BaseFrame() string { return g.cfg.BaseFrame }

// TrackingUnknown reports whether NoInformation cells mean unexplored space.
func (g *Grid) TrackingUnknown() bool { return g.cfg.TrackingUnknown }

// WorldToMap converts world coordinates to a cell index.
func (g *Grid) WorldToMap(x, y float64) (int, int, bool) {
	mx := math.Floor((x - g.cfg.OriginX) / g.cfg.Resolution)
	my := math.Floor((y - g.cfg.OriginY) / g.cfg.Resolution)
	if math.IsNaN(mx) || math.IsNaN(my) || mx < 0 || my < 0 || mx >= float64(g.cfg.Width) || my >= float64(g.cfg.Height) {
		return 0, 0, false
	}
	return int(mx), int(my), true
}

// Cost returns the cost at a world coordinate.
func (g *Grid) Cost(ctx context.Context, x, y float64) (uint8, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	mx, my, ok := g.WorldToMap(x, y)
	if !ok {
		return 0, false, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[my*g.cfg.Width+mx], true, nil
}

// SetCost sets the cost of the cell containing a world coordinate.
func (g *Grid) SetCost(x, y float64, cost uint8) error {
	mx, my, ok := g.WorldToMap(x, y)
	if !ok {
		return errors.Errorf("point (%v, %v) is outside the grid", x, y)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells[my*g.cfg.Width+mx] = cost
	return nil
}

// SetOrigin moves the grid, used by rolling grids that follow the robot. Cell contents are kept.
func (g *Grid) SetOrigin(x, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg.OriginX = x
	g.cfg.OriginY = y
}

// Fill sets every cell overlapping the rectangle [x0, x1] x [y0, y1], in world coordinates, to
// cost. The parts of the rectangle outside the grid are ignored.
func (g *Grid) Fill(x0, y0, x1, y1 float64, cost uint8) {
	g.mu.Lock()
	defer g.mu.Unlock()
	toCell := func(v, origin float64, size int) int {
		c := int(math.Floor((v - origin) / g.cfg.Resolution))
		if c < 0 {
			return 0
		}
		if c >= size {
			return size - 1
		}
		return c
	}
	minX, maxX := math.Min(x0, x1), math.Max(x0, x1)
	minY, maxY := math.Min(y0, y1), math.Max(y0, y1)
	if maxX < g.cfg.OriginX || maxY < g.cfg.OriginY ||
		minX >= g.cfg.OriginX+float64(g.cfg.Width)*g.cfg.Resolution ||
		minY >= g.cfg.OriginY+float64(g.cfg.Height)*g.cfg.Resolution {
		return
	}
	cx0 := toCell(minX, g.cfg.OriginX, g.cfg.Width)
	cx1 := toCell(maxX, g.cfg.OriginX, g.cfg.Width)
	cy0 := toCell(minY, g.cfg.OriginY, g.cfg.Height)
	cy1 := toCell(maxY, g.cfg.OriginY, g.cfg.Height)
	for my := cy0; my <= cy1; my++ {
		for mx := cx0; mx <= cx1; mx++ {
			g.cells[my*g.cfg.Width+mx] = cost
		}
	}
}
