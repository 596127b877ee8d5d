// Package referenceframe defines stamped poses, paths, and the transformer that moves them between
// named frames.
package referenceframe

import (
	"context"
	"time"
)

// Transformer moves poses between frames. Implementations must honor the context deadline and
// reject transforms older than tolerance relative to the pose stamp.
type Transformer interface {
	Transform(ctx context.Context, pose *PoseInFrame, dst string, tolerance time.Duration) (*PoseInFrame, error)
}
