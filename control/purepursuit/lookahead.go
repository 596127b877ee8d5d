package purepursuit

import (
	"math"

	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/utils"
)

// EffectiveLookahead returns the lookahead distance for the measured linear speed. With velocity
// scaling the speed magnitude times the gain is clamped to [min, max]; a NaN result resolves to
// min. Otherwise the fixed lookahead is used.
func (cfg *Config) EffectiveLookahead(speed float64) float64 {
	if !cfg.UseVelocityScaledLookaheadDist {
		return cfg.LookaheadDist
	}
	return utils.Clamp(math.Abs(speed)*cfg.LookaheadGain, cfg.MinLookaheadDist, cfg.MaxLookaheadDist)
}

// SelectCarrot returns the first pose of the window at least lookahead away from the origin, or
// the last pose when none is.
func SelectCarrot(window referenceframe.Path, lookahead float64) (*referenceframe.PoseInFrame, error) {
	if window.Empty() {
		return nil, &EmptyWindowError{}
	}
	for _, pose := range window.Poses {
		if Norm(pose.Pose().Point()) >= lookahead {
			return pose, nil
		}
	}
	return window.Last(), nil
}
