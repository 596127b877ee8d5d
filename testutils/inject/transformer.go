package inject

import (
	"context"
	"time"

	"go.viam.com/pursuit/referenceframe"
)

// Transformer is an injectable referenceframe.Transformer.
type Transformer struct {
	referenceframe.Transformer
	TransformFunc func(ctx context.Context, pose *referenceframe.PoseInFrame, dst string,
		tolerance time.Duration) (*referenceframe.PoseInFrame, error)
}

// Transform calls the injected TransformFunc or the real variant.
func (t *Transformer) Transform(
	ctx context.Context, pose *referenceframe.PoseInFrame, dst string, tolerance time.Duration,
) (*referenceframe.PoseInFrame, error) {
	if t.TransformFunc == nil {
		return t.Transformer.Transform(ctx, pose, dst, tolerance)
	}
	return t.TransformFunc(ctx, pose, dst, tolerance)
}
