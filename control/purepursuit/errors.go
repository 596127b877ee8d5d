package purepursuit

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/pursuit/control"
)

// ConfigError is returned by Configure when a parameter is absent or out of its domain.
type ConfigError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("pure pursuit config: %s: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("pure pursuit config: %s=%v: %s", e.Param, e.Value, e.Reason)
}

// LifecycleError is returned when an operation is called in a state that does not allow it.
type LifecycleError struct {
	Op    string
	State control.State
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("controller lifecycle: cannot %s while %s", e.Op, e.State)
}

// EmptyPathError is returned by SetPlan for a path with no poses.
type EmptyPathError struct {
	Frame string
}

func (e *EmptyPathError) Error() string {
	return fmt.Sprintf("path window: received plan in frame %q with zero poses", e.Frame)
}

// InvalidPathError is returned when the held path cannot be used, or an incoming path is malformed.
type InvalidPathError struct {
	Reason string
}

func (e *InvalidPathError) Error() string {
	return "path window: invalid path: " + e.Reason
}

// EmptyWindowError is returned when no pose of the path survives windowing.
type EmptyWindowError struct {
	Considered int
	Failed     int
}

func (e *EmptyWindowError) Error() string {
	return fmt.Sprintf("path window: window is empty, %d poses considered and %d failed to transform",
		e.Considered, e.Failed)
}

// TransformError is returned when the frame transformer cannot move a pose within its tolerance
// or timeout.
type TransformError struct {
	Component string
	Source    string
	Target    string
	Err       error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: cannot transform pose from %q to %q: %v", e.Component, e.Source, e.Target, e.Err)
}

// Unwrap returns the transformer's error.
func (e *TransformError) Unwrap() error {
	return e.Err
}

// GridUnavailableError is returned when a cost grid query fails or times out.
type GridUnavailableError struct {
	X, Y float64
	Err  error
}

func (e *GridUnavailableError) Error() string {
	return fmt.Sprintf("collision interlock: cost grid unavailable at (%.3f, %.3f): %v", e.X, e.Y, e.Err)
}

// Unwrap returns the grid's error.
func (e *GridUnavailableError) Unwrap() error {
	return e.Err
}

// DegenerateTimeStepError is returned by the limiter when the time since the last command is not
// positive.
type DegenerateTimeStepError struct {
	DT float64
}

func (e *DegenerateTimeStepError) Error() string {
	return fmt.Sprintf("kinematic limiter: time step %v s since the last command is not positive", e.DT)
}

// NonFiniteCommandError is returned by the limiter when the raw command is NaN or infinite,
// usually because the carrot came from a bad transform.
type NonFiniteCommandError struct {
	Raw control.Twist
}

func (e *NonFiniteCommandError) Error() string {
	return fmt.Sprintf("kinematic limiter: raw command (%v, %v) is not finite", e.Raw.Linear, e.Raw.Angular)
}

// CollisionImminentError fails a tick whose segment to the carrot crosses a lethal cell. The
// command must not be issued.
type CollisionImminentError struct {
	X, Y           float64
	Cost           uint8
	Threshold      uint8
	CarrotDistance float64
}

func (e *CollisionImminentError) Error() string {
	return fmt.Sprintf("collision interlock: cost %d >= %d at (%.3f, %.3f) on the %.3f m segment to the carrot",
		e.Cost, e.Threshold, e.X, e.Y, e.CarrotDistance)
}

// IsRecoverable reports whether err only means there was no usable data this tick. Hosts may hold
// or zero the last command and try again next tick. Configuration, lifecycle and collision errors
// are not recoverable.
func IsRecoverable(err error) bool {
	var (
		emptyPath   *EmptyPathError
		invalidPath *InvalidPathError
		emptyWindow *EmptyWindowError
		transform   *TransformError
		grid        *GridUnavailableError
		degenerate  *DegenerateTimeStepError
		nonFinite   *NonFiniteCommandError
	)
	return errors.As(err, &emptyPath) ||
		errors.As(err, &invalidPath) ||
		errors.As(err, &emptyWindow) ||
		errors.As(err, &transform) ||
		errors.As(err, &grid) ||
		errors.As(err, &degenerate) ||
		errors.As(err, &nonFinite)
}
