package fake

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/spatialmath"
	"go.viam.com/pursuit/utils"
)

func newTestBase(t *testing.T, start spatialmath.Pose) (*Base, *referenceframe.FrameTree, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	tree := referenceframe.NewFrameTree("odom")
	b, err := NewBase(Config{Frame: "base", Parent: "odom", Start: start}, tree, clk, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return b, tree, clk
}

func TestFakeBase(t *testing.T) {
	ctx := context.Background()

	t.Run("straight", func(t *testing.T) {
		b, tree, clk := newTestBase(t, spatialmath.NewPoseFromPlanar(1, 0, math.Pi/2))
		test.That(t, b.SetVelocity(ctx, control.Twist{Linear: 0.5}), test.ShouldBeNil)
		moving, err := b.IsMoving(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, moving, test.ShouldBeTrue)

		clk.Add(2 * time.Second)
		pose, err := b.CurrentPosition(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.FrameName(), test.ShouldEqual, "odom")
		test.That(t, pose.Stamp(), test.ShouldEqual, clk.Now())
		test.That(t, pose.Pose().Point().X, test.ShouldAlmostEqual, 1.0)
		test.That(t, pose.Pose().Point().Y, test.ShouldAlmostEqual, 1.0)

		// The frame tree follows the base.
		origin := referenceframe.NewPoseInFrame("base", spatialmath.NewZeroPose(), clk.Now())
		inOdom, err := tree.Transform(ctx, origin, "odom", time.Millisecond)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(inOdom.Pose(), pose.Pose(), 1e-9), test.ShouldBeTrue)
	})

	t.Run("spin in place", func(t *testing.T) {
		b, _, clk := newTestBase(t, spatialmath.NewZeroPose())
		test.That(t, b.SetVelocity(ctx, control.Twist{Angular: math.Pi / 2}), test.ShouldBeNil)
		clk.Add(time.Second)
		pose, err := b.CurrentPosition(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Pose().Point().Norm(), test.ShouldAlmostEqual, 0.0)
		test.That(t, pose.Pose().Yaw(), test.ShouldAlmostEqual, math.Pi/2)
	})

	t.Run("arc", func(t *testing.T) {
		b, _, clk := newTestBase(t, spatialmath.NewZeroPose())
		test.That(t, b.SetVelocity(ctx, control.Twist{Linear: 1, Angular: 1}), test.ShouldBeNil)
		clk.Add(utils.SecondsToDuration(math.Pi / 2))
		pose, err := b.CurrentPosition(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Pose().Point().X, test.ShouldAlmostEqual, 1.0, 1e-6)
		test.That(t, pose.Pose().Point().Y, test.ShouldAlmostEqual, 1.0, 1e-6)
		test.That(t, pose.Pose().Yaw(), test.ShouldAlmostEqual, math.Pi/2, 1e-6)

		vel, err := b.CurrentVelocity(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, vel, test.ShouldResemble, control.Twist{Linear: 1, Angular: 1})
	})

	t.Run("stop and close", func(t *testing.T) {
		b, _, clk := newTestBase(t, spatialmath.NewZeroPose())
		test.That(t, b.SetVelocity(ctx, control.Twist{Linear: 1}), test.ShouldBeNil)
		clk.Add(time.Second)
		test.That(t, b.Stop(ctx), test.ShouldBeNil)
		moving, err := b.IsMoving(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, moving, test.ShouldBeFalse)

		clk.Add(time.Second)
		pose, err := b.CurrentPosition(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Pose().Point().X, test.ShouldAlmostEqual, 1.0)

		test.That(t, b.Close(ctx), test.ShouldBeNil)
		test.That(t, b.Close(ctx), test.ShouldBeNil)
		test.That(t, b.CloseCount, test.ShouldEqual, 2)
		test.That(t, b.SetVelocity(ctx, control.Twist{Linear: 1}), test.ShouldNotBeNil)
		_, err = b.CurrentPosition(ctx)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestNewBaseUnknownParent(t *testing.T) {
	tree := referenceframe.NewFrameTree("map")
	_, err := NewBase(Config{Frame: "base", Parent: "odom"}, tree, clock.NewMock(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "odom")
}
