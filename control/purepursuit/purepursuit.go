package purepursuit

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/utils"
)

// Model is the registered model name.
const Model = "pure_pursuit"

func init() {
	control.RegisterController(Model, func(name string, logger logging.Logger) control.Controller {
		return NewController(name, logger)
	})
}

// Controller is a pure pursuit control.Controller.
type Controller struct {
	name   string
	logger logging.Logger

	mu        sync.Mutex
	state     control.State
	cfg       *Config
	deps      control.Dependencies
	window    *WindowManager
	collision *CollisionChecker
	lastCmd   control.Command
}

var (
	_ control.Controller      = (*Controller)(nil)
	_ control.CommandResetter = (*Controller)(nil)
)

// NewController returns an unconfigured controller.
func NewController(name string, logger logging.Logger) *Controller {
	return &Controller{name: name, logger: logger, state: control.StateUnconfigured}
}

// State returns the lifecycle state.
func (c *Controller) State() control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) requireState(op string, want control.State) error {
	if c.state != want {
		return &LifecycleError{Op: op, State: c.state}
	}
	return nil
}

// Configure validates attrs and wires the collaborators. On error the controller stays
// Unconfigured.
func (c *Controller) Configure(ctx context.Context, attrs utils.AttributeMap, deps control.Dependencies) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("configure", control.StateUnconfigured); err != nil {
		return err
	}
	c.logger.Infof("Configuring controller: %s of type %s", c.name, Model)

	cfg, err := ConfigFromAttributes(attrs)
	if err != nil {
		return err
	}
	if deps.Transformer == nil {
		return &ConfigError{Param: "dependencies.transformer", Reason: "required dependency missing"}
	}
	if deps.Costmap == nil {
		return &ConfigError{Param: "dependencies.costmap", Reason: "required dependency missing"}
	}
	if res := deps.Costmap.Resolution(); !(res > 0) {
		return &ConfigError{Param: "dependencies.costmap.resolution", Value: res, Reason: "must be greater than 0"}
	}
	if deps.Publisher == nil {
		deps.Publisher = publisher.NewNoop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	c.cfg = cfg
	c.deps = deps
	c.window = NewWindowManager(deps.Transformer, deps.Costmap, deps.Publisher, cfg.Tolerance(), cfg.Timeout(),
		c.logger.Sublogger("window"))
	c.collision = NewCollisionChecker(deps.Costmap, deps.Transformer, cfg, c.logger.Sublogger("collision"))
	c.state = control.StateInactive
	return nil
}

// Activate opens the observability sink and seeds the last command with a zero command stamped now.
// If activation fails after the sink is open, the sink is closed again.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("activate", control.StateInactive); err != nil {
		return err
	}
	c.logger.Infof("Activating controller: %s of type %s", c.name, Model)

	sink := c.deps.Publisher
	if err := sink.Open(ctx); err != nil {
		return errors.Wrap(err, "failed to open observability sink")
	}
	guard := utils.NewGuard(func() {
		if closeErr := sink.Close(context.Background()); closeErr != nil {
			c.logger.Warnw("failed to close observability sink after failed activation", "error", closeErr)
		}
	})
	defer guard.OnFail()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "activation interrupted")
	}

	c.lastCmd = control.Command{Stamp: c.deps.Clock.Now(), Frame: c.deps.Costmap.BaseFrame()}
	if held := c.window.Plan(); !held.Empty() {
		c.publish(TopicReceivedGlobalPlan, held)
	}

	guard.Success()
	c.state = control.StateActive
	return nil
}

// Deactivate closes the observability sink. The held path is kept.
func (c *Controller) Deactivate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("deactivate", control.StateActive); err != nil {
		return err
	}
	c.logger.Infof("Deactivating controller: %s of type %s", c.name, Model)
	c.state = control.StateInactive
	return errors.Wrap(c.deps.Publisher.Close(ctx), "failed to close observability sink")
}

// Cleanup releases the configuration, collaborators and held path.
func (c *Controller) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("cleanup", control.StateInactive); err != nil {
		return err
	}
	c.logger.Infof("Cleaning up controller: %s of type %s", c.name, Model)
	c.reset()
	c.state = control.StateUnconfigured
	return nil
}

func (c *Controller) reset() {
	c.cfg = nil
	c.deps = control.Dependencies{}
	c.window = nil
	c.collision = nil
	c.lastCmd = control.Command{}
}

// Close shuts the controller down from any state. It is terminal and idempotent.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.state == control.StateActive {
		err = errors.Wrap(c.deps.Publisher.Close(ctx), "failed to close observability sink")
	}
	if c.state != control.StateCleanedUp {
		c.logger.Debugf("Closing controller: %s", c.name)
	}
	c.reset()
	c.state = control.StateCleanedUp
	return err
}

// SetPlan replaces the held path.
func (c *Controller) SetPlan(ctx context.Context, path referenceframe.Path) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("set plan", control.StateActive); err != nil {
		return err
	}
	if err := c.window.SetPlan(path); err != nil {
		return err
	}
	c.publish(TopicReceivedGlobalPlan, c.window.Plan())
	return nil
}

func (c *Controller) publish(topic string, payload interface{}) {
	if err := c.deps.Publisher.Publish(topic, payload); err != nil {
		c.logger.Debugw("failed to publish", "topic", topic, "error", err)
	}
}

// ComputeVelocityCommand runs one control tick for the robot at pose moving at velocity. Pruning
// and the last command are only committed when the whole tick succeeds.
func (c *Controller) ComputeVelocityCommand(
	ctx context.Context, pose *referenceframe.PoseInFrame, velocity control.Twist,
) (control.Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("compute velocity command", control.StateActive); err != nil {
		return control.Command{}, err
	}
	if pose == nil {
		return control.Command{}, &InvalidPathError{Reason: "robot pose is nil"}
	}

	window, err := c.window.Window(ctx, pose)
	if err != nil {
		return control.Command{}, err
	}

	lookahead := c.cfg.EffectiveLookahead(velocity.Linear)
	carrot, err := SelectCarrot(window.Path, lookahead)
	if err != nil {
		return control.Command{}, err
	}
	c.publish(TopicLookaheadPoint, carrot)

	raw := Synthesize(carrot.Pose().Point(), c.cfg.DesiredLinearVel)

	now := c.deps.Clock.Now()
	dt := now.Sub(c.lastCmd.Stamp).Seconds()
	limiter := NewLimiter(c.cfg, c.deps.Costmap.Resolution())
	twist, err := limiter.Apply(
		control.Twist{Linear: raw.Linear, Angular: raw.Angular},
		c.lastCmd.Twist,
		lookaheadError(lookahead, raw.CarrotDistance),
		lookahead,
		dt,
	)
	if err != nil {
		return control.Command{}, err
	}

	hit, err := c.collision.firstCollision(ctx, pose, carrot)
	if err != nil {
		return control.Command{}, err
	}
	if hit != nil {
		c.logger.Errorw("collision imminent", "x", hit.point.X, "y", hit.point.Y, "cost", hit.cost)
		return control.Command{}, &CollisionImminentError{
			X: hit.point.X, Y: hit.point.Y, Cost: hit.cost, Threshold: c.collision.threshold, CarrotDistance: hit.distance,
		}
	}

	c.window.Prune(window)
	c.lastCmd = control.Command{Twist: twist, Stamp: now, Frame: pose.FrameName()}
	c.logger.Debugw("velocity command",
		"linear", twist.Linear, "angular", twist.Angular,
		"lookahead", lookahead, "carrot_distance", raw.CarrotDistance, "curvature", raw.Curvature, "dt", dt)
	return c.lastCmd, nil
}

// ResetCommand makes a zero command stamped now the last command, as if the base had been told to
// stop by the controller itself.
func (c *Controller) ResetCommand(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState("reset command", control.StateActive); err != nil {
		return err
	}
	c.lastCmd = control.Command{Stamp: c.deps.Clock.Now(), Frame: c.lastCmd.Frame}
	return nil
}

// HeldPlan returns a copy of the path the controller is tracking.
func (c *Controller) HeldPlan() referenceframe.Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.window == nil {
		return referenceframe.Path{}
	}
	return c.window.Plan()
}

// LastCommand returns the last emitted command.
func (c *Controller) LastCommand() control.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCmd
}
