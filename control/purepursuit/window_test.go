package purepursuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/spatialmath"
	"go.viam.com/pursuit/testutils/inject"
)

var poseComparer = cmp.AllowUnexported(referenceframe.PoseInFrame{}, spatialmath.Pose{})

func newTestWindowManager(t *testing.T, w *testWorld, transformer referenceframe.Transformer) *WindowManager {
	t.Helper()
	test.That(t, w.sink.Open(context.Background()), test.ShouldBeNil)
	return NewWindowManager(transformer, w.grid, w.sink, 100*time.Millisecond, 50*time.Millisecond, logging.NewTestLogger(t))
}

func xs(p referenceframe.Path) []float64 {
	out := make([]float64, 0, p.Len())
	for _, pose := range p.Poses {
		out = append(out, pose.Pose().Point().X)
	}
	return out
}

func TestWindowSetPlan(t *testing.T) {
	w := newTestWorld(t)
	wm := newTestWindowManager(t, w, w.tree)

	_, err := wm.Window(context.Background(), w.moveRobot(t, 0, 0, 0))
	var invalidErr *InvalidPathError
	test.That(t, errors.As(err, &invalidErr), test.ShouldBeTrue)

	// An empty plan before any other leaves the held path empty.
	err = wm.SetPlan(referenceframe.Path{Frame: "map"})
	var emptyErr *EmptyPathError
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)
	test.That(t, wm.Plan().Empty(), test.ShouldBeTrue)

	plan := straightPath(5, 0.5)
	test.That(t, wm.SetPlan(plan), test.ShouldBeNil)
	before := wm.Plan()

	err = wm.SetPlan(referenceframe.Path{Frame: "map"})
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)
	test.That(t, cmp.Diff(before, wm.Plan(), poseComparer), test.ShouldBeEmpty)

	mixed := pathOf("map", [2]float64{0, 0})
	mixed.Poses = append(mixed.Poses, referenceframe.NewPoseInFrame("odom", spatialmath.NewZeroPose(), time.Time{}))
	err = wm.SetPlan(mixed)
	test.That(t, errors.As(err, &invalidErr), test.ShouldBeTrue)
	test.That(t, cmp.Diff(before, wm.Plan(), poseComparer), test.ShouldBeEmpty)

	err = wm.SetPlan(pathOf("", [2]float64{0, 0}))
	test.That(t, errors.As(err, &invalidErr), test.ShouldBeTrue)

	// The held path is a copy.
	plan.Poses[0] = referenceframe.NewPoseInFrame("map", spatialmath.NewPoseFromPlanar(9, 9, 0), time.Time{})
	test.That(t, wm.Plan().Poses[0].Pose().Point().X, test.ShouldEqual, 0.)
}

func TestWindowTransformsIntoBase(t *testing.T) {
	w := newTestWorld(t)
	wm := newTestWindowManager(t, w, w.tree)
	test.That(t, wm.SetPlan(straightPath(5, 0.5)), test.ShouldBeNil)

	robot := w.moveRobot(t, 0.5, 0.2, 0)
	window, err := wm.Window(context.Background(), robot)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, window.Path.Frame, test.ShouldEqual, "base")
	test.That(t, window.Path.Stamp, test.ShouldEqual, robot.Stamp())
	test.That(t, window.Robot.FrameName(), test.ShouldEqual, "map")
	test.That(t, window.Path.Len(), test.ShouldEqual, 4)
	for i, pose := range window.Path.Poses {
		test.That(t, pose.FrameName(), test.ShouldEqual, "base")
		test.That(t, pose.Pose().Point().X, test.ShouldAlmostEqual, float64(i)*0.5)
		test.That(t, pose.Pose().Point().Y, test.ShouldAlmostEqual, -0.2)
	}
	test.That(t, len(w.sink.Messages(TopicLocalPlan)), test.ShouldEqual, 1)

	// Window does not prune; Prune does.
	test.That(t, wm.Plan().Len(), test.ShouldEqual, 5)
	wm.Prune(window)
	test.That(t, xs(wm.Plan()), test.ShouldResemble, []float64{0.5, 1, 1.5, 2})
}

func TestWindowPruneIdempotent(t *testing.T) {
	w := newTestWorld(t)
	wm := newTestWindowManager(t, w, w.tree)
	test.That(t, wm.SetPlan(straightPath(31, 0.1)), test.ShouldBeNil)

	robot := w.moveRobot(t, 1.02, 0, 0)
	first, err := wm.WindowAndPrune(context.Background(), robot)
	test.That(t, err, test.ShouldBeNil)
	held := wm.Plan()
	test.That(t, held.Len(), test.ShouldEqual, 21)
	test.That(t, held.Poses[0].Pose().Point().X, test.ShouldAlmostEqual, 1.0)

	// A stationary robot keeps the same closest pose and prunes nothing more.
	for i := 0; i < 3; i++ {
		again, err := wm.WindowAndPrune(context.Background(), robot)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cmp.Diff(held, wm.Plan(), poseComparer), test.ShouldBeEmpty)
		test.That(t, again.Len(), test.ShouldEqual, first.Len())
	}

	// Backing up never restores pruned poses.
	_, err = wm.WindowAndPrune(context.Background(), w.moveRobot(t, 0, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wm.Plan().Poses[0].Pose().Point().X, test.ShouldAlmostEqual, 1.0)
}

func TestWindowClosestTiesToEarliest(t *testing.T) {
	w := newTestWorld(t)
	wm := newTestWindowManager(t, w, w.tree)
	test.That(t, wm.SetPlan(pathOf("odom", [2]float64{1, 0}, [2]float64{-1, 0}, [2]float64{2, 0})), test.ShouldBeNil)

	window, err := wm.Window(context.Background(), w.moveRobot(t, 0, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, xs(window.Path), test.ShouldResemble, []float64{1, -1, 2})
	test.That(t, window.closest, test.ShouldEqual, 0)
}

func TestWindowEndsAtRadius(t *testing.T) {
	w := newTestWorld(t)
	wm := newTestWindowManager(t, w, w.tree)
	// The grid is 5m x 5m, so the window radius is about 3.54m. The window stops at the first pose
	// beyond it even though a later pose is close again.
	test.That(t, wm.SetPlan(pathOf("odom", [2]float64{0, 0}, [2]float64{1, 0}, [2]float64{5, 0}, [2]float64{1.5, 0})), test.ShouldBeNil)

	window, err := wm.Window(context.Background(), w.moveRobot(t, 0, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, xs(window.Path), test.ShouldResemble, []float64{0, 1})
}

func TestWindowSkipsFailedTransforms(t *testing.T) {
	w := newTestWorld(t)
	failAll := false
	transformer := &inject.Transformer{
		Transformer: w.tree,
		TransformFunc: func(
			ctx context.Context, pose *referenceframe.PoseInFrame, dst string, tolerance time.Duration,
		) (*referenceframe.PoseInFrame, error) {
			if dst == "base" && (failAll || pose.Pose().Point().X == 1) {
				return nil, errors.New("no transform")
			}
			return w.tree.Transform(ctx, pose, dst, tolerance)
		},
	}
	wm := newTestWindowManager(t, w, transformer)
	test.That(t, wm.SetPlan(pathOf("odom", [2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})), test.ShouldBeNil)

	window, err := wm.Window(context.Background(), w.moveRobot(t, 0, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, xs(window.Path), test.ShouldResemble, []float64{0, 2})

	failAll = true
	_, err = wm.Window(context.Background(), w.moveRobot(t, 0, 0, 0))
	var emptyErr *EmptyWindowError
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)
	test.That(t, emptyErr.Considered, test.ShouldEqual, 3)
	test.That(t, emptyErr.Failed, test.ShouldEqual, 3)
	test.That(t, IsRecoverable(err), test.ShouldBeTrue)
}

func TestWindowRobotTransformFailure(t *testing.T) {
	w := newTestWorld(t)
	wm := newTestWindowManager(t, w, w.tree)
	test.That(t, wm.SetPlan(straightPath(5, 0.5)), test.ShouldBeNil)

	// The base link is stale relative to a robot pose stamped a second later.
	robot := w.moveRobot(t, 0, 0, 0)
	w.clk.Add(time.Second)
	stale := referenceframe.NewPoseInFrame("base", spatialmath.NewZeroPose(), w.clk.Now())
	_, err := wm.Window(context.Background(), stale)
	var tfErr *TransformError
	test.That(t, errors.As(err, &tfErr), test.ShouldBeTrue)
	test.That(t, tfErr.Source, test.ShouldEqual, "base")
	test.That(t, tfErr.Target, test.ShouldEqual, "map")
	var staleErr *referenceframe.StaleTransformError
	test.That(t, errors.As(err, &staleErr), test.ShouldBeTrue)
	test.That(t, wm.Plan().Len(), test.ShouldEqual, 5)

	// A robot pose in odom only needs the static link to reach map, but every path pose then
	// fails to reach base through the stale link.
	_, err = wm.Window(context.Background(), robot.WithStamp(w.clk.Now()))
	var emptyErr *EmptyWindowError
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)
	test.That(t, emptyErr.Failed, test.ShouldEqual, 5)
}

func TestWindowTransformTimeout(t *testing.T) {
	w := newTestWorld(t)
	blocking := &inject.Transformer{
		TransformFunc: func(
			ctx context.Context, pose *referenceframe.PoseInFrame, dst string, tolerance time.Duration,
		) (*referenceframe.PoseInFrame, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	wm := newTestWindowManager(t, w, blocking)
	test.That(t, wm.SetPlan(straightPath(5, 0.5)), test.ShouldBeNil)

	_, err := wm.Window(context.Background(), w.moveRobot(t, 0, 0, 0))
	var tfErr *TransformError
	test.That(t, errors.As(err, &tfErr), test.ShouldBeTrue)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
}
