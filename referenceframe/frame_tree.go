package referenceframe

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/pursuit/spatialmath"
)

type frameLink struct {
	parent string
	pose   spatialmath.Pose
	stamp  time.Time
	static bool
}

// FrameTree is a tree of named frames rooted at a single frame. Each frame stores its pose in its
// parent. Static links never go stale; dynamic links carry the time they were last updated.
type FrameTree struct {
	mu    sync.RWMutex
	root  string
	links map[string]frameLink
}

// NewFrameTree returns a tree holding only the root frame.
func NewFrameTree(root string) *FrameTree {
	return &FrameTree{root: root, links: map[string]frameLink{}}
}

// Root returns the root frame name.
func (ft *FrameTree) Root() string {
	return ft.root
}

// FrameNames returns every frame name, root included, sorted.
func (ft *FrameTree) FrameNames() []string {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	names := []string{ft.root}
	for name := range ft.links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ft *FrameTree) frameExists(name string) bool {
	if name == ft.root {
		return true
	}
	_, ok := ft.links[name]
	return ok
}

// AddStaticFrame adds a frame whose pose in its parent never changes.
func (ft *FrameTree) AddStaticFrame(name, parent string, pose spatialmath.Pose) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if err := ft.checkName(name, parent); err != nil {
		return err
	}
	ft.links[name] = frameLink{parent: parent, pose: pose, static: true}
	return nil
}

// SetTransform adds or updates a dynamic frame. A frame cannot change parent or become dynamic
// after being added as static.
func (ft *FrameTree) SetTransform(name, parent string, pose spatialmath.Pose, stamp time.Time) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if existing, ok := ft.links[name]; ok {
		if existing.static {
			return errors.Errorf("frame %q is static", name)
		}
		if existing.parent != parent {
			return errors.Errorf("frame %q already has parent %q, cannot move it under %q", name, existing.parent, parent)
		}
		ft.links[name] = frameLink{parent: parent, pose: pose, stamp: stamp}
		return nil
	}
	if err := ft.checkName(name, parent); err != nil {
		return err
	}
	ft.links[name] = frameLink{parent: parent, pose: pose, stamp: stamp}
	return nil
}

func (ft *FrameTree) checkName(name, parent string) error {
	if !ft.frameExists(parent) {
		return NewParentFrameMissingError(parent)
	}
	if ft.frameExists(name) {
		return errors.Errorf("frame with name %q already in frame tree", name)
	}
	return nil
}

// traceback returns the chain of frames from name up to the root, both included.
func (ft *FrameTree) traceback(name string) ([]string, error) {
	if !ft.frameExists(name) {
		return nil, NewFrameMissingError(name)
	}
	chain := []string{name}
	for name != ft.root {
		name = ft.links[name].parent
		chain = append(chain, name)
	}
	return chain, nil
}

// composeTo composes links from chain[0] up to, but not through, the ancestor at index end.
func (ft *FrameTree) composeTo(chain []string, end int, at time.Time, tolerance time.Duration) (spatialmath.Pose, error) {
	acc := spatialmath.NewZeroPose()
	for i := 0; i < end; i++ {
		link := ft.links[chain[i]]
		if !link.static && !at.IsZero() {
			offset := at.Sub(link.stamp)
			if offset < 0 {
				offset = -offset
			}
			if offset > tolerance {
				return spatialmath.Pose{}, &StaleTransformError{
					Child: chain[i], Parent: link.parent, Offset: offset, Tolerance: tolerance,
				}
			}
		}
		// Transforms from the child up to the parent are added on the left.
		acc = spatialmath.Compose(link.pose, acc)
	}
	return acc, nil
}

// Transform expresses pose in dst. Only the links between the two frames and their lowest common
// ancestor are used, and each dynamic one must be within tolerance of the pose stamp. A pose with a
// zero stamp skips the staleness check.
func (ft *FrameTree) Transform(
	ctx context.Context, pose *PoseInFrame, dst string, tolerance time.Duration,
) (*PoseInFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pose.FrameName() == dst {
		return pose, nil
	}

	ft.mu.RLock()
	defer ft.mu.RUnlock()

	srcChain, err := ft.traceback(pose.FrameName())
	if err != nil {
		return nil, errors.Wrap(err, "source")
	}
	dstChain, err := ft.traceback(dst)
	if err != nil {
		return nil, errors.Wrap(err, "destination")
	}

	// Strip the shared tail so both chains end at the lowest common ancestor.
	si, di := len(srcChain)-1, len(dstChain)-1
	for si > 0 && di > 0 && srcChain[si-1] == dstChain[di-1] {
		si--
		di--
	}

	srcToAncestor, err := ft.composeTo(srcChain, si, pose.Stamp(), tolerance)
	if err != nil {
		return nil, err
	}
	dstToAncestor, err := ft.composeTo(dstChain, di, pose.Stamp(), tolerance)
	if err != nil {
		return nil, err
	}

	inDst := spatialmath.Compose(spatialmath.PoseInverse(dstToAncestor), spatialmath.Compose(srcToAncestor, pose.Pose()))
	return NewPoseInFrame(dst, inDst, pose.Stamp()), nil
}
