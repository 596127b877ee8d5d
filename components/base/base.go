// Package base defines the mobile base the host drives with controller commands.
package base

import (
	"context"

	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/referenceframe"
)

// A Base is a planar mobile base taking linear and angular velocity commands.
type Base interface {
	// SetVelocity drives the base at linear m/s along its heading and angular rad/s about +Z
	// until told otherwise.
	SetVelocity(ctx context.Context, cmd control.Twist) error
	// Stop stops the base. It is assumed the base stops immediately.
	Stop(ctx context.Context) error
	// IsMoving reports whether the base is executing a non-zero command.
	IsMoving(ctx context.Context) (bool, error)
	Close(ctx context.Context) error
}

// A Localizer reports where a base is and how fast it is moving.
type Localizer interface {
	CurrentPosition(ctx context.Context) (*referenceframe.PoseInFrame, error)
	CurrentVelocity(ctx context.Context) (control.Twist, error)
}

// A LocalizingBase is a base that knows its own pose, such as one with wheel odometry.
type LocalizingBase interface {
	Base
	Localizer
}
