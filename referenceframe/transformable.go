package referenceframe

import (
	"encoding/json"
	"fmt"
	"time"

	"go.viam.com/pursuit/spatialmath"
)

// PoseInFrame is a pose tagged with the frame it is expressed in and the time it was observed.
type PoseInFrame struct {
	frame string
	pose  spatialmath.Pose
	stamp time.Time
}

// NewPoseInFrame creates a new PoseInFrame.
func NewPoseInFrame(frame string, pose spatialmath.Pose, stamp time.Time) *PoseInFrame {
	return &PoseInFrame{frame: frame, pose: pose, stamp: stamp}
}

// FrameName returns the name of the frame in which the pose is expressed.
func (pF *PoseInFrame) FrameName() string {
	return pF.frame
}

// Pose returns the pose.
func (pF *PoseInFrame) Pose() spatialmath.Pose {
	return pF.pose
}

// Stamp returns the observation time.
func (pF *PoseInFrame) Stamp() time.Time {
	return pF.stamp
}

// WithFrame returns a copy retagged to another frame without moving the pose.
func (pF *PoseInFrame) WithFrame(frame string) *PoseInFrame {
	return &PoseInFrame{frame: frame, pose: pF.pose, stamp: pF.stamp}
}

// WithStamp returns a copy carrying another observation time.
func (pF *PoseInFrame) WithStamp(stamp time.Time) *PoseInFrame {
	return &PoseInFrame{frame: pF.frame, pose: pF.pose, stamp: stamp}
}

func (pF *PoseInFrame) String() string {
	return fmt.Sprintf("%s@%s", pF.pose, pF.frame)
}

type poseInFrameJSON struct {
	Frame string    `json:"frame"`
	Stamp time.Time `json:"stamp"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Z     float64   `json:"z"`
	QW    float64   `json:"qw"`
	QX    float64   `json:"qx"`
	QY    float64   `json:"qy"`
	QZ    float64   `json:"qz"`
}

// MarshalJSON encodes the pose as a flat position + quaternion object.
func (pF *PoseInFrame) MarshalJSON() ([]byte, error) {
	pt := pF.pose.Point()
	q := pF.pose.Orientation()
	return json.Marshal(poseInFrameJSON{
		Frame: pF.frame, Stamp: pF.stamp,
		X: pt.X, Y: pt.Y, Z: pt.Z,
		QW: q.Real, QX: q.Imag, QY: q.Jmag, QZ: q.Kmag,
	})
}
