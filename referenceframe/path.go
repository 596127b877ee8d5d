package referenceframe

import (
	"time"

	"github.com/pkg/errors"
)

// Path is an ordered sequence of poses sharing one frame. Order is traversal order.
type Path struct {
	Frame string         `json:"frame"`
	Stamp time.Time      `json:"stamp"`
	Poses []*PoseInFrame `json:"poses"`
}

// NewPath returns a path in frame whose poses are all tagged with that frame.
func NewPath(frame string, stamp time.Time, poses ...*PoseInFrame) Path {
	p := Path{Frame: frame, Stamp: stamp, Poses: make([]*PoseInFrame, 0, len(poses))}
	for _, pose := range poses {
		p.Poses = append(p.Poses, pose.WithFrame(frame))
	}
	return p
}

// Len returns the number of poses.
func (p Path) Len() int {
	return len(p.Poses)
}

// Empty reports whether the path has no poses.
func (p Path) Empty() bool {
	return len(p.Poses) == 0
}

// Last returns the final pose, or nil for an empty path.
func (p Path) Last() *PoseInFrame {
	if len(p.Poses) == 0 {
		return nil
	}
	return p.Poses[len(p.Poses)-1]
}

// Clone copies the pose slice so that the copy can be pruned independently. Poses themselves are
// immutable and are shared.
func (p Path) Clone() Path {
	poses := make([]*PoseInFrame, len(p.Poses))
	copy(poses, p.Poses)
	return Path{Frame: p.Frame, Stamp: p.Stamp, Poses: poses}
}

// Normalized returns a copy where poses without a frame tag take the path frame. A pose tagged
// with a different frame is an error, since a path has exactly one frame.
func (p Path) Normalized() (Path, error) {
	out := Path{Frame: p.Frame, Stamp: p.Stamp, Poses: make([]*PoseInFrame, 0, len(p.Poses))}
	for i, pose := range p.Poses {
		if pose == nil {
			return Path{}, errors.Errorf("pose %d is nil", i)
		}
		switch pose.FrameName() {
		case p.Frame:
			out.Poses = append(out.Poses, pose)
		case "":
			out.Poses = append(out.Poses, pose.WithFrame(p.Frame))
		default:
			return Path{}, errors.Errorf("pose %d is in frame %q but the path is in frame %q", i, pose.FrameName(), p.Frame)
		}
	}
	return out, nil
}
