package purepursuit

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/utils"
)

func TestLimiterAcceleration(t *testing.T) {
	l := NewLimiter(testConfig(t, nil), 0.05)

	out, err := l.Apply(control.Twist{Linear: 0.5}, control.Twist{}, 0, 0.4, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.1)
	test.That(t, out.Angular, test.ShouldEqual, 0.)

	out, err = l.Apply(control.Twist{Linear: 0.5}, out, 0, 0.4, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.2)

	// Within the limits the raw command passes through.
	out, err = l.Apply(control.Twist{Linear: 0.25, Angular: -0.05}, control.Twist{Linear: 0.2}, 0, 0.4, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.25)
	test.That(t, out.Angular, test.ShouldAlmostEqual, -0.05)
}

func TestLimiterDeceleration(t *testing.T) {
	l := NewLimiter(testConfig(t, nil), 0.05)
	out, err := l.Apply(control.Twist{Linear: 0, Angular: -0.5}, control.Twist{Linear: 0.5, Angular: 0.5}, 0, 0.4, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.4)
	test.That(t, out.Angular, test.ShouldAlmostEqual, 0.4)
}

func TestLimiterPerAxis(t *testing.T) {
	cfg := testConfig(t, utils.AttributeMap{"max_angular_accel": 3.0, "max_linear_decel": 2.0})
	test.That(t, cfg.LinearLimits(), test.ShouldResemble, AxisLimits{Accel: 1, Decel: 2})
	test.That(t, cfg.AngularLimits(), test.ShouldResemble, AxisLimits{Accel: 3, Decel: 1})

	l := NewLimiter(cfg, 0.05)
	out, err := l.Apply(control.Twist{Linear: 0, Angular: 1}, control.Twist{Linear: 0.5}, 0, 0.4, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.3)
	test.That(t, out.Angular, test.ShouldAlmostEqual, 0.3)
}

func TestLimiterEndOfPath(t *testing.T) {
	l := NewLimiter(testConfig(t, nil), 0.05)
	last := control.Twist{Linear: 0.5}

	// The carrot is 0.2 short of a 0.4 lookahead, so speed halves.
	out, err := l.Apply(control.Twist{Linear: 0.5}, last, 0.2, 0.4, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.25)

	// Errors within two grid cells are ignored.
	out, err = l.Apply(control.Twist{Linear: 0.5}, last, 0.1, 0.4, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Linear, test.ShouldAlmostEqual, 0.5)
}

func TestLimiterDegenerateTimeStep(t *testing.T) {
	l := NewLimiter(testConfig(t, nil), 0.05)
	for _, dt := range []float64{0, -0.1, math.NaN()} {
		out, err := l.Apply(control.Twist{Linear: 0.5}, control.Twist{}, 0, 0.4, dt)
		var dtErr *DegenerateTimeStepError
		test.That(t, errors.As(err, &dtErr), test.ShouldBeTrue)
		test.That(t, out, test.ShouldResemble, control.Twist{})
		test.That(t, IsRecoverable(err), test.ShouldBeTrue)
	}
}

func TestLimiterBounds(t *testing.T) {
	l := NewLimiter(testConfig(t, nil), 0.05)
	raws := []float64{math.Inf(-1), -100, -1, -0.3, 0, 0.2, 0.5, 0.7, 3, 1e6, math.Inf(1), math.NaN()}
	lasts := []control.Twist{{}, {Linear: 0.5, Angular: 1}, {Linear: 0.25, Angular: -1}, {Linear: 0.1, Angular: 0.3}}
	dts := []float64{1e-6, 0.01, 0.1, 1, 1000}
	errs := []float64{0, 0.05, 0.3, 5}

	for _, lin := range raws {
		for _, ang := range raws {
			for _, last := range lasts {
				for _, dt := range dts {
					for _, lookaheadErr := range errs {
						out, err := l.Apply(control.Twist{Linear: lin, Angular: ang}, last, lookaheadErr, 0.4, dt)
						test.That(t, err, test.ShouldBeNil)
						test.That(t, out.Linear, test.ShouldBeGreaterThanOrEqualTo, 0)
						test.That(t, out.Linear, test.ShouldBeLessThanOrEqualTo, 0.5)
						test.That(t, out.Angular, test.ShouldBeGreaterThanOrEqualTo, -1)
						test.That(t, out.Angular, test.ShouldBeLessThanOrEqualTo, 1)
					}
				}
			}
		}
	}
}

func TestLimiterNonFinite(t *testing.T) {
	l := NewLimiter(testConfig(t, nil), 0.05)
	for _, raw := range []control.Twist{
		{Linear: 0.5, Angular: math.NaN()},
		{Linear: math.NaN()},
		{Linear: 0.5, Angular: math.Inf(-1)},
	} {
		out, err := l.Apply(raw, control.Twist{}, 0, 0.4, 0.1)
		var nonFinite *NonFiniteCommandError
		test.That(t, errors.As(err, &nonFinite), test.ShouldBeTrue)
		test.That(t, IsRecoverable(err), test.ShouldBeTrue)
		test.That(t, out, test.ShouldResemble, control.Twist{})
		test.That(t, out.Angular, test.ShouldNotEqual, -l.MaxAngularVel)
	}
}
