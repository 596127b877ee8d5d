// Package config defines the JSON configuration of the pursuit host: the controller and its
// attributes, the static frames, the cost grid, the path to follow and the simulated robot.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/spatialmath"
	"go.viam.com/pursuit/utils"
)

const (
	defaultRootFrame     = "map"
	defaultGoalTolerance = 0.1
	maxRateHz            = 200
)

// Config is the full host configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Controller ControllerConfig      `json:"controller"`
	RootFrame  string                `json:"root_frame,omitempty"`
	Frames     []FrameConfig         `json:"frames,omitempty"`
	Costmap    costmap.GridConfig    `json:"costmap"`
	Obstacles  []ObstacleConfig      `json:"obstacles,omitempty"`
	Path       PathConfig            `json:"path"`
	Robot      RobotConfig           `json:"robot"`
	MQTT       *publisher.MQTTConfig `json:"mqtt,omitempty"`
}

// Ensure fills in defaults and validates the config.
func (c *Config) Ensure() error {
	if c.RootFrame == "" {
		c.RootFrame = defaultRootFrame
	}
	if c.Path.Frame == "" {
		c.Path.Frame = c.RootFrame
	}
	if c.Robot.GoalTolerance == 0 {
		c.Robot.GoalTolerance = defaultGoalTolerance
	}
	return c.Validate()
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Controller.Validate("controller"); err != nil {
		return err
	}
	for idx := range c.Frames {
		if err := c.Frames[idx].Validate(fmt.Sprintf("%s.%d", "frames", idx)); err != nil {
			return err
		}
	}
	names := lo.Map(c.Frames, func(f FrameConfig, _ int) string { return f.Name })
	if dups := lo.FindDuplicates(names); len(dups) != 0 {
		return errors.Errorf("frames: duplicate frame name %q", dups[0])
	}
	if lo.Contains(names, c.RootFrame) {
		return errors.Errorf("frames: %q is the root frame and cannot be redefined", c.RootFrame)
	}
	if err := c.Costmap.Validate("costmap"); err != nil {
		return err
	}
	for idx := range c.Obstacles {
		if err := c.Obstacles[idx].Validate(fmt.Sprintf("%s.%d", "obstacles", idx)); err != nil {
			return err
		}
	}
	if err := c.Path.Validate("path"); err != nil {
		return err
	}
	if err := c.Robot.Validate("robot"); err != nil {
		return err
	}
	if c.Robot.Frame != c.Costmap.BaseFrame {
		return errors.Errorf("robot: frame %q must be the costmap base frame %q", c.Robot.Frame, c.Costmap.BaseFrame)
	}
	if c.MQTT != nil {
		if err := c.MQTT.Validate("mqtt"); err != nil {
			return err
		}
	}
	return nil
}

// ControllerConfig selects a registered controller model and carries its attributes.
type ControllerConfig struct {
	Name       string             `json:"name"`
	Model      string             `json:"model"`
	Attributes utils.AttributeMap `json:"attributes"`
}

// Validate ensures all parts of the config are valid.
func (c *ControllerConfig) Validate(path string) error {
	if c.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if !utils.ValidNameRegex.MatchString(c.Name) {
		return errors.Wrap(utils.ErrInvalidName(c.Name), path)
	}
	if c.Model == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if c.Attributes == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "attributes")
	}
	return nil
}

// Translation is a planar offset in meters.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FrameConfig is a static frame: its parent and its planar pose in that parent.
type FrameConfig struct {
	Name        string      `json:"name"`
	Parent      string      `json:"parent"`
	Translation Translation `json:"translation"`
	ThetaDegs   float64     `json:"theta_degs"`
}

// Validate ensures all parts of the config are valid.
func (f *FrameConfig) Validate(path string) error {
	if f.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if f.Parent == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "parent")
	}
	if f.Name == f.Parent {
		return errors.Errorf("%s: frame %q cannot be its own parent", path, f.Name)
	}
	return nil
}

// Pose returns the frame's pose in its parent.
func (f *FrameConfig) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromPlanar(f.Translation.X, f.Translation.Y, utils.DegToRad(f.ThetaDegs))
}

// ObstacleConfig is a rectangle of the cost grid, in its global frame, set to a single cost.
type ObstacleConfig struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	Cost int     `json:"cost"`
}

// Validate ensures all parts of the config are valid.
func (o *ObstacleConfig) Validate(path string) error {
	if o.MinX > o.MaxX || o.MinY > o.MaxY {
		return errors.Errorf("%s: min corner must not exceed max corner", path)
	}
	if o.Cost < 0 || o.Cost > math.MaxUint8 {
		return errors.Errorf("%s: cost must be in [0, 255], got %d", path, o.Cost)
	}
	return nil
}

// Waypoint is a planar point of the path.
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PathConfig is the global plan handed to the controller. Consecutive waypoints are joined by
// straight segments sampled every spacing meters.
type PathConfig struct {
	Frame     string     `json:"frame,omitempty"`
	Spacing   float64    `json:"spacing,omitempty"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Validate ensures all parts of the config are valid.
func (p *PathConfig) Validate(path string) error {
	if len(p.Waypoints) == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "waypoints")
	}
	if p.Spacing < 0 {
		return errors.Errorf("%s: spacing cannot be negative", path)
	}
	return nil
}

// Build samples the waypoints into a path. Every pose faces the next waypoint, the last one keeps
// the heading of the final segment.
func (p *PathConfig) Build(stamp time.Time) referenceframe.Path {
	var pts [][2]float64
	for i, wp := range p.Waypoints {
		if i == 0 || p.Spacing <= 0 {
			pts = append(pts, [2]float64{wp.X, wp.Y})
			continue
		}
		prev := p.Waypoints[i-1]
		dist := math.Hypot(wp.X-prev.X, wp.Y-prev.Y)
		steps := int(math.Ceil(dist / p.Spacing))
		for s := 1; s <= steps; s++ {
			frac := float64(s) / float64(steps)
			pts = append(pts, [2]float64{prev.X + frac*(wp.X-prev.X), prev.Y + frac*(wp.Y-prev.Y)})
		}
	}

	poses := make([]*referenceframe.PoseInFrame, 0, len(pts))
	heading := 0.0
	for i, pt := range pts {
		if i+1 < len(pts) {
			heading = math.Atan2(pts[i+1][1]-pt[1], pts[i+1][0]-pt[0])
		}
		pose := spatialmath.NewPoseFromPlanar(pt[0], pt[1], heading)
		poses = append(poses, referenceframe.NewPoseInFrame(p.Frame, pose, stamp))
	}
	return referenceframe.NewPath(p.Frame, stamp, poses...)
}

// RobotConfig describes the simulated robot: the frame it drives, the frame that frame is
// attached to, its starting pose, the control rate and how close to the last waypoint counts as
// arrived.
type RobotConfig struct {
	Frame         string  `json:"frame"`
	Parent        string  `json:"parent"`
	StartX        float64 `json:"start_x"`
	StartY        float64 `json:"start_y"`
	StartDegs     float64 `json:"start_theta_degs"`
	RateHz        float64 `json:"rate_hz"`
	GoalTolerance float64 `json:"goal_tolerance,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (r *RobotConfig) Validate(path string) error {
	if r.Frame == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "frame")
	}
	if r.Parent == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "parent")
	}
	if !(r.RateHz > 0) || r.RateHz > maxRateHz {
		return errors.Errorf("%s: rate_hz shouldn't be 0 or above %dHz, got %v", path, maxRateHz, r.RateHz)
	}
	if r.GoalTolerance < 0 {
		return errors.Errorf("%s: goal_tolerance cannot be negative", path)
	}
	return nil
}

// Period returns the control period.
func (r *RobotConfig) Period() time.Duration {
	return utils.SecondsToDuration(1 / r.RateHz)
}

// StartPose returns the robot's initial pose in its parent.
func (r *RobotConfig) StartPose() spatialmath.Pose {
	return spatialmath.NewPoseFromPlanar(r.StartX, r.StartY, utils.DegToRad(r.StartDegs))
}

// BuildFrameTree returns a tree holding the root and every configured static frame. Frames may be
// listed in any order as long as every parent is eventually defined.
func (c *Config) BuildFrameTree() (*referenceframe.FrameTree, error) {
	tree := referenceframe.NewFrameTree(c.RootFrame)
	pending := append([]FrameConfig(nil), c.Frames...)
	for len(pending) != 0 {
		var next []FrameConfig
		for _, f := range pending {
			if !lo.Contains(tree.FrameNames(), f.Parent) {
				next = append(next, f)
				continue
			}
			if err := tree.AddStaticFrame(f.Name, f.Parent, f.Pose()); err != nil {
				return nil, errors.Wrapf(err, "frame %q", f.Name)
			}
		}
		if len(next) == len(pending) {
			return nil, referenceframe.NewParentFrameMissingError(next[0].Parent)
		}
		pending = next
	}
	return tree, nil
}

// BuildGrid returns the configured grid with every obstacle painted in.
func (c *Config) BuildGrid() (*costmap.Grid, error) {
	grid, err := costmap.NewGrid(c.Costmap, costmap.FreeSpace)
	if err != nil {
		return nil, err
	}
	for _, o := range c.Obstacles {
		grid.Fill(o.MinX, o.MinY, o.MaxX, o.MaxY, uint8(o.Cost))
	}
	return grid, nil
}
