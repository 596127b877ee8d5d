// Package fake implements a fake base that integrates unicycle kinematics against a clock and
// publishes its odometry into a frame tree.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/pursuit/components/base"
	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/spatialmath"
)

const straightEpsilon = 1e-9

var _ base.LocalizingBase = (*Base)(nil)

// Config places the fake base: Frame is the frame it moves, attached under Parent.
type Config struct {
	Frame  string
	Parent string
	Start  spatialmath.Pose
}

// Base is a fake base that moves exactly as commanded.
type Base struct {
	cfg    Config
	tree   *referenceframe.FrameTree
	clk    clock.Clock
	logger logging.Logger

	mu         sync.Mutex
	pose       spatialmath.Pose
	cmd        control.Twist
	last       time.Time
	closed     bool
	CloseCount int
}

// NewBase instantiates a fake base at cfg.Start and publishes that pose.
func NewBase(cfg Config, tree *referenceframe.FrameTree, clk clock.Clock, logger logging.Logger) (*Base, error) {
	if clk == nil {
		clk = clock.New()
	}
	b := &Base{cfg: cfg, tree: tree, clk: clk, logger: logger, pose: cfg.Start, last: clk.Now()}
	if err := tree.SetTransform(cfg.Frame, cfg.Parent, b.pose, b.last); err != nil {
		return nil, err
	}
	return b, nil
}

// advance integrates the current command up to now. Constant twists trace arcs, so the update is
// exact for any step length.
func (b *Base) advance() error {
	if b.closed {
		return errors.New("fake base is closed")
	}
	now := b.clk.Now()
	dt := now.Sub(b.last).Seconds()
	b.last = now
	if dt > 0 {
		b.pose = integrate(b.pose, b.cmd, dt)
	}
	return b.tree.SetTransform(b.cfg.Frame, b.cfg.Parent, b.pose, now)
}

func integrate(pose spatialmath.Pose, cmd control.Twist, dt float64) spatialmath.Pose {
	pt := pose.Point()
	theta := pose.Yaw()
	v, w := cmd.Linear, cmd.Angular
	var x, y float64
	if math.Abs(w) < straightEpsilon {
		x = pt.X + v*dt*math.Cos(theta)
		y = pt.Y + v*dt*math.Sin(theta)
	} else {
		r := v / w
		x = pt.X + r*(math.Sin(theta+w*dt)-math.Sin(theta))
		y = pt.Y - r*(math.Cos(theta+w*dt)-math.Cos(theta))
	}
	return spatialmath.NewPoseFromPlanar(x, y, theta+w*dt)
}

// SetVelocity drives the base at cmd from now on.
func (b *Base) SetVelocity(ctx context.Context, cmd control.Twist) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.advance(); err != nil {
		return err
	}
	b.cmd = cmd
	return nil
}

// Stop zeroes the command.
func (b *Base) Stop(ctx context.Context) error {
	return b.SetVelocity(ctx, control.Twist{})
}

// IsMoving reports whether the last command was non-zero.
func (b *Base) IsMoving(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd != control.Twist{}, nil
}

// CurrentPosition returns the integrated pose in the parent frame, stamped now.
func (b *Base) CurrentPosition(ctx context.Context) (*referenceframe.PoseInFrame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.advance(); err != nil {
		return nil, err
	}
	return referenceframe.NewPoseInFrame(b.cfg.Parent, b.pose, b.last), nil
}

// CurrentVelocity returns the command being executed.
func (b *Base) CurrentVelocity(ctx context.Context) (control.Twist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd, nil
}

// Close stops the base. Further commands fail.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	if b.closed {
		return nil
	}
	err := b.advance()
	b.cmd = control.Twist{}
	b.closed = true
	b.logger.Debugw("fake base closed", "frame", b.cfg.Frame, "pose", b.pose.String())
	return err
}
