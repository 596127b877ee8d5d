package waypoints

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/utils"
)

// ServerWaitTimeout bounds how long Follow waits for the server to come up.
const ServerWaitTimeout = 5 * time.Second

// ActionClient submits goals to a waypoint following server.
type ActionClient interface {
	// WaitForServer blocks until the server is reachable or ctx is done.
	WaitForServer(ctx context.Context) error
	// SendGoal submits goal and returns the server's events for it. The channel is closed when
	// the client stops listening.
	SendGoal(ctx context.Context, goal Goal) (<-chan Event, error)
	Close(ctx context.Context) error
}

// Follow submits wps as a single goal and waits for the server's final answer. The request is
// returned whenever it was submitted, so callers can inspect how far it got. There are no retries.
func Follow(ctx context.Context, client ActionClient, wps []Waypoint, clk clock.Clock, logger logging.Logger) (*Request, error) {
	waitCtx, cancel := clk.WithTimeout(ctx, ServerWaitTimeout)
	err := client.WaitForServer(waitCtx)
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, "waypoint following server not available after %s", ServerWaitTimeout)
	}

	goal := NewGoal(wps)
	LogSpacing(wps, logger)
	events, err := client.SendGoal(ctx, goal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send goal")
	}
	logger.Infow("sent goal", "goal", goal.ID, "waypoints", len(wps))

	req := NewRequest(goal)
	stopSlowLogger := utils.SlowLogger(ctx, clk, "waiting for waypoint following to finish", "goal", goal.ID.String(), logger)
	defer stopSlowLogger()
	for {
		select {
		case <-ctx.Done():
			return req, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return req, errors.Errorf("event stream for goal %s ended while %s", goal.ID, req.Status())
			}
			if err := req.Apply(ev); err != nil {
				logger.Warnw("ignoring goal event", "error", err)
				continue
			}
			logger.Debugw("goal event", "status", req.Status(), "current_waypoint", req.CurrentWaypoint())
			if req.Status().Terminal() {
				report(req, logger)
				return req, nil
			}
		}
	}
}

func report(req *Request, logger logging.Logger) {
	switch req.Status() {
	case StatusSucceeded:
		logger.Infow("goal succeeded", "goal", req.Goal.ID)
	case StatusRejected:
		logger.Errorw("goal was rejected", "goal", req.Goal.ID)
	default:
		logger.Errorw("goal did not succeed", "goal", req.Goal.ID, "status", req.Status())
	}
	for _, idx := range req.Missed() {
		if idx < 0 || idx >= len(req.Goal.Waypoints) {
			logger.Warnw("server reported an unknown missed waypoint", "index", idx)
			continue
		}
		wp := req.Goal.Waypoints[idx]
		logger.Warnw("missed waypoint", "index", idx, "lat", wp.Latitude, "lon", wp.Longitude)
	}
}
