package purepursuit

import (
	"context"
	"time"

	"github.com/samber/lo"

	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/referenceframe"
)

// Topics the controller publishes on.
const (
	TopicReceivedGlobalPlan = "received_global_plan"
	TopicLocalPlan          = "local_plan"
	TopicLookaheadPoint     = "lookahead_point"
)

// Window is the part of the held path near the robot, expressed in the grid's base frame.
type Window struct {
	Path referenceframe.Path
	// Robot is the robot pose in the held path's frame.
	Robot *referenceframe.PoseInFrame

	closest int
}

// WindowManager holds the global path and cuts the window the controller tracks each tick.
type WindowManager struct {
	transformer referenceframe.Transformer
	grid        costmap.Costmap
	sink        publisher.Publisher
	tolerance   time.Duration
	timeout     time.Duration
	logger      logging.Logger

	path referenceframe.Path
}

// NewWindowManager returns a manager with no path.
func NewWindowManager(
	transformer referenceframe.Transformer,
	grid costmap.Costmap,
	sink publisher.Publisher,
	tolerance, timeout time.Duration,
	logger logging.Logger,
) *WindowManager {
	return &WindowManager{
		transformer: transformer,
		grid:        grid,
		sink:        sink,
		tolerance:   tolerance,
		timeout:     timeout,
		logger:      logger,
	}
}

// SetPlan replaces the held path with a copy of path. Poses without a frame take the path frame.
// On error the held path is unchanged.
func (wm *WindowManager) SetPlan(path referenceframe.Path) error {
	if path.Empty() {
		return &EmptyPathError{Frame: path.Frame}
	}
	if path.Frame == "" {
		return &InvalidPathError{Reason: "path has no frame"}
	}
	normalized, err := path.Normalized()
	if err != nil {
		return &InvalidPathError{Reason: err.Error()}
	}
	wm.path = normalized.Clone()
	return nil
}

// Plan returns a copy of the held path.
func (wm *WindowManager) Plan() referenceframe.Path {
	return wm.path.Clone()
}

// Clear drops the held path.
func (wm *WindowManager) Clear() {
	wm.path = referenceframe.Path{}
}

func (wm *WindowManager) transform(
	ctx context.Context, pose *referenceframe.PoseInFrame, dst string,
) (*referenceframe.PoseInFrame, error) {
	if pose.FrameName() == dst {
		return pose, nil
	}
	ctx, cancel := context.WithTimeout(ctx, wm.timeout)
	defer cancel()
	out, err := wm.transformer.Transform(ctx, pose, dst, wm.tolerance)
	if err != nil {
		return nil, &TransformError{Component: "path window", Source: pose.FrameName(), Target: dst, Err: err}
	}
	return out, nil
}

// Window cuts the path around the robot without pruning. It finds the pose closest to the robot,
// extends forward until the first pose beyond the grid's window radius and transforms that range
// into the grid's base frame. Poses that fail to transform are skipped.
func (wm *WindowManager) Window(ctx context.Context, robot *referenceframe.PoseInFrame) (*Window, error) {
	if wm.path.Empty() {
		return nil, &InvalidPathError{Reason: "no plan has been set"}
	}

	robotInPath, err := wm.transform(ctx, robot, wm.path.Frame)
	if err != nil {
		return nil, err
	}
	robotPt := robotInPath.Pose().Point()

	closest := 0
	closestDist := Distance(robotPt, wm.path.Poses[0].Pose().Point())
	for i := 1; i < len(wm.path.Poses); i++ {
		if d := Distance(robotPt, wm.path.Poses[i].Pose().Point()); d < closestDist {
			closest, closestDist = i, d
		}
	}

	radius := costmap.WindowRadius(wm.grid)
	end := len(wm.path.Poses)
	for i := closest; i < len(wm.path.Poses); i++ {
		if Distance(robotPt, wm.path.Poses[i].Pose().Point()) > radius {
			end = i
			break
		}
	}

	base := wm.grid.BaseFrame()
	local := referenceframe.Path{Frame: base, Stamp: robotInPath.Stamp()}
	failed := 0
	for i := closest; i < end; i++ {
		pose := wm.path.Poses[i].WithStamp(robotInPath.Stamp())
		out, err := wm.transform(ctx, pose, base)
		if err != nil {
			failed++
			wm.logger.Debugw("skipping path pose", "index", i, "error", err)
			continue
		}
		local.Poses = append(local.Poses, out)
	}
	if failed > 0 {
		wm.logger.Warnf("%d of %d path poses could not be transformed into %q", failed, end-closest, base)
	}

	if err := wm.sink.Publish(TopicLocalPlan, local); err != nil {
		wm.logger.Debugw("failed to publish local plan", "error", err)
	}

	if local.Empty() {
		return nil, &EmptyWindowError{Considered: end - closest, Failed: failed}
	}
	return &Window{Path: local, Robot: robotInPath, closest: closest}, nil
}

// Prune erases the held poses before the window's closest pose. It must be called with a window
// cut from the current path.
func (wm *WindowManager) Prune(w *Window) {
	if w.closest <= 0 || w.closest > len(wm.path.Poses) {
		return
	}
	wm.path.Poses = lo.Drop(wm.path.Poses, w.closest)
}

// WindowAndPrune cuts the window and prunes in one step.
func (wm *WindowManager) WindowAndPrune(ctx context.Context, robot *referenceframe.PoseInFrame) (referenceframe.Path, error) {
	w, err := wm.Window(ctx, robot)
	if err != nil {
		return referenceframe.Path{}, err
	}
	wm.Prune(w)
	return w.Path, nil
}
