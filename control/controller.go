// Package control defines the capability set of a path-tracking controller and the registry hosts
// use to create one by model name.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/utils"
)

// State is the lifecycle state of a controller.
type State int

// The lifecycle states. CleanedUp is terminal.
const (
	StateUnconfigured State = iota
	StateInactive
	StateActive
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Twist is a planar velocity: linear in m/s along the robot's forward axis and angular in rad/s
// about its vertical axis.
type Twist struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// Command is a velocity command for the robot base.
type Command struct {
	Twist
	Stamp time.Time `json:"stamp"`
	Frame string    `json:"frame"`
}

// Dependencies are the collaborators a controller is configured with. Publisher and Clock are
// optional; a no-op sink and the wall clock are used when they are nil.
type Dependencies struct {
	Transformer referenceframe.Transformer
	Costmap     costmap.Costmap
	Publisher   publisher.Publisher
	Clock       clock.Clock
}

// Controller turns a path and the robot's state into velocity commands.
//
// A controller starts Unconfigured. Configure moves it to Inactive, Activate to Active, Deactivate
// back to Inactive and Cleanup back to Unconfigured. Close may be called from any state and is
// terminal. SetPlan and ComputeVelocityCommand are only valid while Active.
type Controller interface {
	Configure(ctx context.Context, attrs utils.AttributeMap, deps Dependencies) error
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
	Cleanup(ctx context.Context) error
	Close(ctx context.Context) error

	SetPlan(ctx context.Context, path referenceframe.Path) error
	ComputeVelocityCommand(ctx context.Context, pose *referenceframe.PoseInFrame, velocity Twist) (Command, error)

	State() State
}

// CommandResetter is implemented by controllers that limit each command against the previous one.
// Hosts call ResetCommand after stopping the base themselves so the next command ramps up from rest.
type CommandResetter interface {
	ResetCommand(ctx context.Context) error
}
