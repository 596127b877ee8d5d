package referenceframe

import (
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/pursuit/spatialmath"
)

func TestPathNormalized(t *testing.T) {
	p := Path{Frame: "map", Poses: []*PoseInFrame{
		NewPoseInFrame("", spatialmath.NewPoseFromPlanar(0, 0, 0), time.Time{}),
		NewPoseInFrame("map", spatialmath.NewPoseFromPlanar(1, 0, 0), time.Time{}),
	}}
	norm, err := p.Normalized()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, norm.Len(), test.ShouldEqual, 2)
	for _, pose := range norm.Poses {
		test.That(t, pose.FrameName(), test.ShouldEqual, "map")
	}
	// The input is left untouched.
	test.That(t, p.Poses[0].FrameName(), test.ShouldEqual, "")

	p.Poses = append(p.Poses, NewPoseInFrame("odom", spatialmath.NewZeroPose(), time.Time{}))
	_, err = p.Normalized()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "odom")
}

func TestPathClone(t *testing.T) {
	p := NewPath("map", time.Unix(1, 0),
		NewPoseInFrame("", spatialmath.NewPoseFromPlanar(0, 0, 0), time.Time{}),
		NewPoseInFrame("", spatialmath.NewPoseFromPlanar(1, 0, 0), time.Time{}),
	)
	c := p.Clone()
	c.Poses = c.Poses[1:]
	test.That(t, p.Len(), test.ShouldEqual, 2)
	test.That(t, c.Len(), test.ShouldEqual, 1)
	test.That(t, p.Last().Pose().Point().X, test.ShouldEqual, 1.)
	test.That(t, Path{}.Last(), test.ShouldBeNil)
	test.That(t, Path{}.Empty(), test.ShouldBeTrue)
}
