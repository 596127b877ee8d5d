package purepursuit

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/referenceframe"
)

// CollisionChecker samples the straight segment from the robot to the carrot against the cost grid.
type CollisionChecker struct {
	grid        costmap.Costmap
	transformer referenceframe.Transformer
	tolerance   time.Duration
	timeout     time.Duration
	threshold   uint8
	enabled     bool
	logger      logging.Logger
}

// NewCollisionChecker returns a checker. When disabled, Check always reports no collision.
func NewCollisionChecker(
	grid costmap.Costmap,
	transformer referenceframe.Transformer,
	cfg *Config,
	logger logging.Logger,
) *CollisionChecker {
	return &CollisionChecker{
		grid:        grid,
		transformer: transformer,
		tolerance:   cfg.Tolerance(),
		timeout:     cfg.Timeout(),
		threshold:   cfg.LethalCost(),
		enabled:     cfg.CollisionDetection(),
		logger:      logger,
	}
}

type collision struct {
	point    r3.Vector
	cost     uint8
	distance float64
}

// Check reports whether the segment from robot to carrot crosses a lethal cell.
func (cc *CollisionChecker) Check(ctx context.Context, robot, carrot *referenceframe.PoseInFrame) (bool, error) {
	hit, err := cc.firstCollision(ctx, robot, carrot)
	return hit != nil, err
}

func (cc *CollisionChecker) toGlobal(ctx context.Context, pose *referenceframe.PoseInFrame) (r3.Vector, error) {
	global := cc.grid.GlobalFrame()
	if pose.FrameName() == global {
		return pose.Pose().Point(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, cc.timeout)
	defer cancel()
	out, err := cc.transformer.Transform(ctx, pose, global, cc.tolerance)
	if err != nil {
		return r3.Vector{}, &TransformError{Component: "collision interlock", Source: pose.FrameName(), Target: global, Err: err}
	}
	return out.Pose().Point(), nil
}

func (cc *CollisionChecker) inCollision(cost uint8) bool {
	if cost == costmap.NoInformation && cc.grid.TrackingUnknown() {
		return false
	}
	return cost >= cc.threshold
}

// firstCollision walks n = ceil(d/resolution) equal steps from the robot, sampling the robot's own
// cell through the carrot's cell. Samples outside the grid are skipped.
func (cc *CollisionChecker) firstCollision(
	ctx context.Context, robot, carrot *referenceframe.PoseInFrame,
) (*collision, error) {
	if !cc.enabled {
		return nil, nil
	}
	start, err := cc.toGlobal(ctx, robot)
	if err != nil {
		return nil, err
	}
	end, err := cc.toGlobal(ctx, carrot.WithStamp(robot.Stamp()))
	if err != nil {
		return nil, err
	}

	dist := Distance(start, end)
	n := int(math.Ceil(dist / cc.grid.Resolution()))
	for i := 0; i <= n; i++ {
		pt := start
		if n > 0 {
			pt = start.Add(end.Sub(start).Mul(float64(i) / float64(n)))
		}
		cost, inBounds, err := cc.cost(ctx, pt)
		if err != nil {
			return nil, &GridUnavailableError{X: pt.X, Y: pt.Y, Err: err}
		}
		if !inBounds {
			continue
		}
		if cc.inCollision(cost) {
			return &collision{point: pt, cost: cost, distance: dist}, nil
		}
	}
	return nil, nil
}

func (cc *CollisionChecker) cost(ctx context.Context, pt r3.Vector) (uint8, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, cc.timeout)
	defer cancel()
	return cc.grid.Cost(ctx, pt.X, pt.Y)
}
