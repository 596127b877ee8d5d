package referenceframe

import (
	"fmt"
	"time"
)

// NewFrameMissingError is returned when a frame is not part of the frame tree.
func NewFrameMissingError(name string) error {
	return fmt.Errorf("frame with name %q not in frame tree", name)
}

// NewParentFrameMissingError is returned when a frame is added under a parent that does not exist.
func NewParentFrameMissingError(parent string) error {
	return fmt.Errorf("parent frame with name %q not in frame tree", parent)
}

// StaleTransformError is returned when a transform needed to move a pose is older, or newer, than
// the pose by more than the allowed tolerance.
type StaleTransformError struct {
	Child     string
	Parent    string
	Offset    time.Duration
	Tolerance time.Duration
}

func (e *StaleTransformError) Error() string {
	return fmt.Sprintf("transform %s -> %s is %s away from the requested time, tolerance is %s",
		e.Child, e.Parent, e.Offset, e.Tolerance)
}
