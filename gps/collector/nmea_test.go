package collector

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/pursuit/logging"
)

func TestReadNMEA(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(epoch)
	c := New(Config{}, clk, logging.NewTestLogger(t))

	input := strings.Join([]string{
		"garbage before the receiver settles",
		"$GPGGA,123520,4807.038,N,01131.000,E,0,00,,,M,,M,,*58",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*FF",
		"$GPHDT,90.0,T*0C",
	}, "\r\n")
	test.That(t, c.ReadNMEA(context.Background(), strings.NewReader(input)), test.ShouldBeNil)

	// No fix and a bad checksum leave only the orientation.
	_, ok := c.Latest()
	test.That(t, ok, test.ShouldBeFalse)
	fixes, orientations := c.sync.Pending()
	test.That(t, fixes, test.ShouldEqual, 0)
	test.That(t, orientations, test.ShouldEqual, 1)

	input = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n$GPHDT,274.07,T*03\n"
	test.That(t, c.ReadNMEA(context.Background(), strings.NewReader(input)), test.ShouldBeNil)
	sample, ok := c.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sample.Fix.Latitude, test.ShouldAlmostEqual, 48.1173, 1e-9)
	test.That(t, sample.Fix.Longitude, test.ShouldAlmostEqual, 11.5+1.0/60, 1e-9)
	test.That(t, sample.Fix.Altitude, test.ShouldEqual, 545.4)
	test.That(t, sample.Fix.Stamp, test.ShouldEqual, epoch)
	// The first heading of 90 degrees faces east, yaw 0, and pairs first.
	test.That(t, sample.Orientation.Yaw(), test.ShouldAlmostEqual, 0.0)
}

func TestReadNMEACanceled(t *testing.T) {
	c := New(Config{}, clock.NewMock(), logging.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.ReadNMEA(ctx, strings.NewReader("$GPHDT,90.0,T*0C\n"))
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestHeadingToYaw(t *testing.T) {
	test.That(t, headingToYaw(0), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, headingToYaw(90), test.ShouldAlmostEqual, 0.0)
	test.That(t, headingToYaw(180), test.ShouldAlmostEqual, -math.Pi/2)
}
