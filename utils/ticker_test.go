package utils

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/pursuit/logging"
)

func TestSlowLogger(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	clk := clock.NewMock()
	stop := SlowLogger(context.Background(), clk, "still waiting", "goal", "abc", logger)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(time.Second)
		test.That(tb, logs.FilterMessage("still waiting").Len(), test.ShouldBeGreaterThanOrEqualTo, 2)
	})
	entry := logs.FilterMessage("still waiting").All()[0]
	test.That(t, entry.ContextMap()["goal"], test.ShouldEqual, "abc")

	stop()
}
