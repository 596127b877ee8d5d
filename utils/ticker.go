package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/pursuit/logging"
)

// SlowLogger starts a goroutine that logs every few seconds as long as the context has not timed out or was not cancelled.
// Call the returned function once the slow operation is over.
func SlowLogger(ctx context.Context, clk clock.Clock, msg, fieldName string, fieldVal interface{}, logger logging.Logger) func() {
	slowTimer := clk.Timer(2 * time.Second)
	firstTick := true

	ctxWithCancel, cancel := context.WithCancel(ctx)
	startTime := clk.Now()
	go func() {
		for {
			select {
			case <-slowTimer.C:
				elapsed := clk.Since(startTime).Round(time.Second).String()
				logger.Warnw(msg, fieldName, fieldVal, "time_elapsed", elapsed)
				if firstTick {
					slowTimer.Reset(3 * time.Second)
					firstTick = false
				} else {
					slowTimer.Reset(5 * time.Second)
				}
			case <-ctxWithCancel.Done():
				return
			}
		}
	}()
	return func() { slowTimer.Stop(); cancel() }
}
