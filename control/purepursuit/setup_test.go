package purepursuit

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/spatialmath"
	"go.viam.com/pursuit/utils"
)

const tick = 100 * time.Millisecond

// testWorld is a map -> odom -> base frame tree, a 5m x 5m grid centered on the odom origin and a
// mock clock.
type testWorld struct {
	tree *referenceframe.FrameTree
	grid *costmap.Grid
	clk  *clock.Mock
	sink *publisher.Recorder
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	tree := referenceframe.NewFrameTree("map")
	test.That(t, tree.AddStaticFrame("odom", "map", spatialmath.NewZeroPose()), test.ShouldBeNil)

	grid, err := costmap.NewGrid(costmap.GridConfig{
		Width: 100, Height: 100, Resolution: 0.05, OriginX: -2.5, OriginY: -2.5,
		GlobalFrame: "odom", BaseFrame: "base",
	}, costmap.FreeSpace)
	test.That(t, err, test.ShouldBeNil)

	w := &testWorld{tree: tree, grid: grid, clk: clk, sink: publisher.NewRecorder()}
	w.moveRobot(t, 0, 0, 0)
	return w
}

// moveRobot places the robot and returns its pose in odom, stamped now.
func (w *testWorld) moveRobot(t *testing.T, x, y, theta float64) *referenceframe.PoseInFrame {
	t.Helper()
	pose := spatialmath.NewPoseFromPlanar(x, y, theta)
	test.That(t, w.tree.SetTransform("base", "odom", pose, w.clk.Now()), test.ShouldBeNil)
	return referenceframe.NewPoseInFrame("odom", pose, w.clk.Now())
}

func (w *testWorld) deps() control.Dependencies {
	return control.Dependencies{Transformer: w.tree, Costmap: w.grid, Publisher: w.sink, Clock: w.clk}
}

// straightPath runs along +X in map from x=0 to x=(n-1)*step.
func straightPath(n int, step float64) referenceframe.Path {
	poses := make([]*referenceframe.PoseInFrame, 0, n)
	for i := 0; i < n; i++ {
		poses = append(poses, referenceframe.NewPoseInFrame("", spatialmath.NewPoseFromPlanar(float64(i)*step, 0, 0), time.Time{}))
	}
	return referenceframe.NewPath("map", time.Time{}, poses...)
}

func pathOf(frame string, pts ...[2]float64) referenceframe.Path {
	poses := make([]*referenceframe.PoseInFrame, 0, len(pts))
	for _, pt := range pts {
		poses = append(poses, referenceframe.NewPoseInFrame(frame, spatialmath.NewPoseFromPlanar(pt[0], pt[1], 0), time.Time{}))
	}
	return referenceframe.Path{Frame: frame, Poses: poses}
}

func testAttrs(t *testing.T, overrides utils.AttributeMap) utils.AttributeMap {
	t.Helper()
	attrs, err := DefaultConfig().AttributeMap()
	test.That(t, err, test.ShouldBeNil)
	for k, v := range overrides {
		attrs[k] = v
	}
	return attrs
}

func testConfig(t *testing.T, overrides utils.AttributeMap) *Config {
	t.Helper()
	cfg, err := ConfigFromAttributes(testAttrs(t, overrides))
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

// activeController returns a configured and active controller.
func activeController(t *testing.T, w *testWorld, overrides utils.AttributeMap) *Controller {
	t.Helper()
	logger := logging.NewTestLogger(t)
	c := NewController("test", logger)
	test.That(t, c.Configure(context.Background(), testAttrs(t, overrides), w.deps()), test.ShouldBeNil)
	test.That(t, c.Activate(context.Background()), test.ShouldBeNil)
	return c
}
