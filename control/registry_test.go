package control

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/referenceframe"
	"go.viam.com/pursuit/utils"
)

type fakeController struct {
	name  string
	state State
}

func (f *fakeController) Configure(ctx context.Context, attrs utils.AttributeMap, deps Dependencies) error {
	return nil
}
func (f *fakeController) Activate(ctx context.Context) error                          { return nil }
func (f *fakeController) Deactivate(ctx context.Context) error                        { return nil }
func (f *fakeController) Cleanup(ctx context.Context) error                           { return nil }
func (f *fakeController) Close(ctx context.Context) error                             { return nil }
func (f *fakeController) SetPlan(ctx context.Context, path referenceframe.Path) error { return nil }
func (f *fakeController) State() State                                                { return f.state }
func (f *fakeController) ComputeVelocityCommand(
	ctx context.Context, pose *referenceframe.PoseInFrame, velocity Twist,
) (Command, error) {
	return Command{}, nil
}

func TestRegistry(t *testing.T) {
	logger := logging.NewTestLogger(t)
	RegisterController("fake_for_test", func(name string, logger logging.Logger) Controller {
		return &fakeController{name: name}
	})
	test.That(t, func() {
		RegisterController("fake_for_test", func(string, logging.Logger) Controller { return nil })
	}, test.ShouldPanic)
	test.That(t, func() { RegisterController("nil_for_test", nil) }, test.ShouldPanic)

	c, err := NewController("fake_for_test", "ctrl", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.(*fakeController).name, test.ShouldEqual, "ctrl")
	test.That(t, c.State(), test.ShouldEqual, StateUnconfigured)

	_, err = NewController("missing", "ctrl", logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing")

	test.That(t, RegisteredModels(), test.ShouldContain, "fake_for_test")
	test.That(t, RegisteredModels(), test.ShouldNotContain, "nil_for_test")
}

func TestStateString(t *testing.T) {
	test.That(t, StateActive.String(), test.ShouldEqual, "active")
	test.That(t, StateCleanedUp.String(), test.ShouldEqual, "cleaned_up")
	test.That(t, State(9).String(), test.ShouldEqual, "unknown(9)")
}
