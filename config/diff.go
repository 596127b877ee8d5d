package config

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Diff reports which parts of the config changed between two versions.
type Diff struct {
	Left, Right *Config

	// ControllerEqual is false when the controller model, name or attributes changed, which
	// requires an explicit reconfigure of the controller.
	ControllerEqual bool
	// WorldEqual is false when the frames, grid, obstacles, robot or sink changed, which
	// requires rebuilding the collaborators.
	WorldEqual bool
	// PathEqual is false when only a new plan needs to be handed to the controller.
	PathEqual bool
}

// DiffConfigs compares two configs.
func DiffConfigs(left, right *Config) *Diff {
	opts := cmp.Options{cmpopts.EquateEmpty()}
	world := func(c *Config) []interface{} {
		return []interface{}{c.RootFrame, c.Frames, c.Costmap, c.Obstacles, c.Robot, c.MQTT}
	}
	return &Diff{
		Left:            left,
		Right:           right,
		ControllerEqual: cmp.Equal(left.Controller, right.Controller, opts),
		WorldEqual:      cmp.Equal(world(left), world(right), opts),
		PathEqual:       cmp.Equal(left.Path, right.Path, opts),
	}
}

// ResourcesEqual reports whether nothing the host acts on changed.
func (diff *Diff) ResourcesEqual() bool {
	return diff.ControllerEqual && diff.WorldEqual && diff.PathEqual
}
