package purepursuit

import (
	"math"

	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/utils"
)

// AxisLimits bounds how fast one velocity axis may change, in units per second squared.
type AxisLimits struct {
	Accel float64
	Decel float64
}

// limit moves from last toward raw by no more than the allowed change over dt.
func (l AxisLimits) limit(raw, last, dt float64) float64 {
	measured := (raw - last) / dt
	switch {
	case measured > l.Accel:
		return last + l.Accel*dt
	case measured < -l.Decel:
		return last - l.Decel*dt
	default:
		return raw
	}
}

// Limiter bounds a raw command to the robot's kinematics.
type Limiter struct {
	Linear        AxisLimits
	Angular       AxisLimits
	MaxLinearVel  float64
	MaxAngularVel float64
	// Resolution of the cost grid. A lookahead error above two cells means the path is ending.
	Resolution float64
}

// NewLimiter builds a limiter from the config and the grid resolution.
func NewLimiter(cfg *Config, resolution float64) Limiter {
	return Limiter{
		Linear:        cfg.LinearLimits(),
		Angular:       cfg.AngularLimits(),
		MaxLinearVel:  cfg.DesiredLinearVel,
		MaxAngularVel: cfg.MaxAngularVel,
		Resolution:    resolution,
	}
}

// Apply limits raw against the last emitted command, dt seconds ago. lookaheadError is how far the
// carrot is from the lookahead distance; when it exceeds two grid cells the carrot has collapsed
// toward the end of the path and linear speed is scaled down by lookaheadError/lookahead.
func (l Limiter) Apply(raw, last control.Twist, lookaheadError, lookahead, dt float64) (control.Twist, error) {
	if !(dt > 0) {
		return control.Twist{}, &DegenerateTimeStepError{DT: dt}
	}

	if !isFinite(raw.Linear) || !isFinite(raw.Angular) {
		return control.Twist{}, &NonFiniteCommandError{Raw: raw}
	}

	linear, angular := raw.Linear, raw.Angular
	if lookaheadError > 2*l.Resolution && lookahead > 0 {
		linear *= lookaheadError / lookahead
	}

	linear = l.Linear.limit(linear, last.Linear, dt)
	angular = l.Angular.limit(angular, last.Angular, dt)

	return control.Twist{
		Linear:  utils.Clamp(linear, 0, l.MaxLinearVel),
		Angular: utils.Clamp(angular, -l.MaxAngularVel, l.MaxAngularVel),
	}, nil
}

// lookaheadError is how far the carrot sits from the requested lookahead.
func lookaheadError(lookahead, carrotDistance float64) float64 {
	return math.Abs(lookahead - carrotDistance)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
