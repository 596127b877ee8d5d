// Package robot runs a controller against a simulated base: it builds the frames, grid and sink
// from a config, drives the base with the controller's commands at the configured rate and applies
// config changes through an explicit reconfigure.
package robot

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pursuit/components/base"
	"go.viam.com/pursuit/components/base/fake"
	"go.viam.com/pursuit/config"
	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/control/purepursuit"
	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/utils"
)

// TopicCommand carries every command sent to the base.
const TopicCommand = "cmd_vel"

// Status summarizes what the loop has done so far.
type Status struct {
	Ticks       uint64
	Failures    uint64
	GoalReached bool
	// Halted is set when the controller reported an imminent collision. The base stays stopped
	// until a new path is set.
	Halted      bool
	LastError   error
	LastCommand control.Command
}

type options struct {
	clk  clock.Clock
	sink publisher.Publisher
}

// Option configures a Robot.
type Option func(*options)

// WithClock drives the loop, the base and the controller from clk.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clk = clk }
}

// WithPublisher replaces the sink the config would build.
func WithPublisher(sink publisher.Publisher) Option {
	return func(o *options) { o.sink = sink }
}

// Robot owns a controller, its collaborators and the base it drives.
type Robot struct {
	logger logging.Logger
	opts   options

	mu     sync.Mutex
	cfg    *config.Config
	tree   *referenceframe.FrameTree
	grid   *costmap.Grid
	base   base.LocalizingBase
	sink   publisher.Publisher
	ctrl   control.Controller
	plan   referenceframe.Path
	status Status

	workers utils.StoppableWorkers
}

// New builds every part described by cfg and leaves the controller active and tracking the
// configured path. Call Start to run the loop or Tick to step it.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*Robot, error) {
	r := &Robot{logger: logger}
	for _, opt := range opts {
		opt(&r.opts)
	}
	if r.opts.clk == nil {
		r.opts.clk = clock.New()
	}
	if err := r.build(ctx, cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// build must be called with mu held or before r is shared.
func (r *Robot) build(ctx context.Context, cfg *config.Config) (err error) {
	tree, err := cfg.BuildFrameTree()
	if err != nil {
		return err
	}
	grid, err := cfg.BuildGrid()
	if err != nil {
		return err
	}
	b, err := fake.NewBase(fake.Config{
		Frame:  cfg.Robot.Frame,
		Parent: cfg.Robot.Parent,
		Start:  cfg.Robot.StartPose(),
	}, tree, r.opts.clk, r.logger.Sublogger("base"))
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, b.Close(ctx))
		}
	}()

	sink := r.opts.sink
	if sink == nil {
		sink = publisher.NewNoop()
		if cfg.MQTT != nil {
			if sink, err = publisher.NewMQTTPublisher(*cfg.MQTT, r.logger.Sublogger("mqtt")); err != nil {
				return err
			}
		}
	}

	ctrl, err := control.NewController(cfg.Controller.Model, cfg.Controller.Name, r.logger.Sublogger(cfg.Controller.Name))
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, ctrl.Close(ctx))
		}
	}()
	r.cfg, r.tree, r.grid, r.base, r.sink, r.ctrl = cfg, tree, grid, b, sink, ctrl
	r.status = Status{}
	if err := r.startController(ctx); err != nil {
		return err
	}
	return r.setPlan(ctx, cfg.Path.Build(r.opts.clk.Now()))
}

func (r *Robot) deps() control.Dependencies {
	return control.Dependencies{Transformer: r.tree, Costmap: r.grid, Publisher: r.sink, Clock: r.opts.clk}
}

func (r *Robot) startController(ctx context.Context) error {
	if err := r.ctrl.Configure(ctx, r.cfg.Controller.Attributes, r.deps()); err != nil {
		return err
	}
	return r.ctrl.Activate(ctx)
}

func (r *Robot) setPlan(ctx context.Context, plan referenceframe.Path) error {
	if err := r.ctrl.SetPlan(ctx, plan); err != nil {
		return err
	}
	r.plan = plan
	r.status.GoalReached = false
	r.status.Halted = false
	return r.resetCommand(ctx)
}

// resetCommand tells the controller the base is at rest, if it limits against its last command.
func (r *Robot) resetCommand(ctx context.Context) error {
	if resetter, ok := r.ctrl.(control.CommandResetter); ok {
		return resetter.ResetCommand(ctx)
	}
	return nil
}

// Start runs Tick at the configured rate until Close.
func (r *Robot) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers != nil {
		return
	}
	r.workers = utils.NewStoppableWorkers(r.run)
}

func (r *Robot) run(ctx context.Context) {
	r.mu.Lock()
	period := r.cfg.Robot.Period()
	r.mu.Unlock()

	ticker := r.opts.clk.Ticker(period)
	defer ticker.Stop()
	r.logger.Infow("running control loop", "period", period)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := r.Tick(ctx); err != nil && !purepursuit.IsRecoverable(err) {
			r.logger.Errorw("control tick failed", "error", err)
		}
	}
}

// Tick runs one control cycle: localize, check arrival, compute and send a command. On any error
// the base is stopped and the error returned. An imminent collision halts the loop until the next
// path.
func (r *Robot) Tick(ctx context.Context) (control.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Ticks++

	cmd, err := r.tick(ctx)
	if err != nil {
		r.status.Failures++
		r.status.LastError = err
		if stopErr := r.base.Stop(ctx); stopErr != nil {
			err = multierr.Combine(err, stopErr)
		} else if resetErr := r.resetCommand(ctx); resetErr != nil {
			r.logger.Debugw("failed to reset last command", "error", resetErr)
		}
		var collision *purepursuit.CollisionImminentError
		if errors.As(err, &collision) {
			r.status.Halted = true
			r.logger.Warnw("collision imminent, halting until a new path is set", "error", err)
		}
		r.logger.Debugw("tick failed, base stopped", "error", err)
		return control.Command{}, err
	}
	if !r.status.Halted {
		r.status.LastError = nil
	}
	r.status.LastCommand = cmd
	return cmd, nil
}

func (r *Robot) tick(ctx context.Context) (control.Command, error) {
	if r.status.GoalReached || r.status.Halted {
		return control.Command{Stamp: r.opts.clk.Now(), Frame: r.cfg.Robot.Parent}, nil
	}
	pose, err := r.base.CurrentPosition(ctx)
	if err != nil {
		return control.Command{}, err
	}

	reached, err := r.atGoal(ctx, pose)
	if err != nil {
		return control.Command{}, err
	}
	if reached {
		r.status.GoalReached = true
		r.logger.Infow("goal reached", "pose", pose.String())
		return control.Command{Stamp: pose.Stamp(), Frame: pose.FrameName()}, r.base.Stop(ctx)
	}

	velocity, err := r.base.CurrentVelocity(ctx)
	if err != nil {
		return control.Command{}, err
	}
	cmd, err := r.ctrl.ComputeVelocityCommand(ctx, pose, velocity)
	if err != nil {
		return control.Command{}, err
	}
	if err := r.base.SetVelocity(ctx, cmd.Twist); err != nil {
		return control.Command{}, err
	}
	if err := r.sink.Publish(TopicCommand, cmd); err != nil {
		r.logger.Debugw("failed to publish command", "error", err)
	}
	return cmd, nil
}

func (r *Robot) atGoal(ctx context.Context, pose *referenceframe.PoseInFrame) (bool, error) {
	goal := r.plan.Last()
	if goal == nil {
		return false, nil
	}
	inPlan, err := r.tree.Transform(ctx, pose, r.plan.Frame, 0)
	if err != nil {
		return false, errors.Wrap(err, "cannot express robot pose in the plan frame")
	}
	return purepursuit.Distance(inPlan.Pose().Point(), goal.Pose().Point()) <= r.cfg.Robot.GoalTolerance, nil
}

// Status returns a snapshot of the loop status.
func (r *Robot) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Base returns the driven base.
func (r *Robot) Base() base.LocalizingBase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base
}

// Controller returns the running controller.
func (r *Robot) Controller() control.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctrl
}

// Reconfigure applies newCfg. A new path is handed to the running controller, changed controller
// attributes go through deactivate, cleanup, configure and activate, and any other change
// rebuilds everything, the base included.
func (r *Robot) Reconfigure(ctx context.Context, newCfg *config.Config) error {
	running := r.stopWorkers()
	defer func() {
		if running {
			r.Start()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	diff := config.DiffConfigs(r.cfg, newCfg)
	switch {
	case diff.ResourcesEqual():
		return nil
	case !diff.WorldEqual || diff.Left.Controller.Model != diff.Right.Controller.Model ||
		diff.Left.Controller.Name != diff.Right.Controller.Name:
		r.logger.Info("rebuilding robot")
		if err := r.teardown(ctx); err != nil {
			r.logger.Warnw("error closing previous robot", "error", err)
		}
		return r.build(ctx, newCfg)
	case !diff.ControllerEqual:
		r.logger.Info("reconfiguring controller")
		if err := multierr.Combine(r.base.Stop(ctx), r.ctrl.Deactivate(ctx), r.ctrl.Cleanup(ctx)); err != nil {
			return err
		}
		r.cfg = newCfg
		if err := r.startController(ctx); err != nil {
			return err
		}
		return r.setPlan(ctx, newCfg.Path.Build(r.opts.clk.Now()))
	default:
		r.logger.Info("replacing plan")
		r.cfg = newCfg
		return r.setPlan(ctx, newCfg.Path.Build(r.opts.clk.Now()))
	}
}

// stopWorkers stops the loop, if running, and reports whether it was.
func (r *Robot) stopWorkers() bool {
	r.mu.Lock()
	workers := r.workers
	r.workers = nil
	r.mu.Unlock()
	if workers == nil {
		return false
	}
	workers.Stop()
	return true
}

func (r *Robot) teardown(ctx context.Context) error {
	return multierr.Combine(r.base.Stop(ctx), r.ctrl.Close(ctx), r.base.Close(ctx))
}

// Close stops the loop and the base and closes the controller.
func (r *Robot) Close(ctx context.Context) error {
	r.stopWorkers()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.teardown(ctx)
}
