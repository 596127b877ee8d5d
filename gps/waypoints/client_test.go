package waypoints_test

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/pursuit/gps/waypoints"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/testutils/inject"
)

var route = []waypoints.Waypoint{
	{Latitude: 38.161491, Longitude: -122.4538},
	{Latitude: 38.161568, Longitude: -122.4536},
	{Latitude: 38.161637, Longitude: -122.4533},
}

func script(goal waypoints.Goal, statuses []waypoints.Status, missed []int) chan waypoints.Event {
	events := make(chan waypoints.Event, len(statuses))
	for i, s := range statuses {
		ev := waypoints.Event{GoalID: goal.ID, Status: s, CurrentWaypoint: i}
		if s.Terminal() {
			ev.MissedWaypoints = missed
		}
		events <- ev
	}
	return events
}

// scriptedClient replays statuses for whatever goal it is sent.
func scriptedClient(statuses []waypoints.Status, missed []int) *inject.ActionClient {
	return &inject.ActionClient{
		WaitForServerFunc: func(ctx context.Context) error { return nil },
		SendGoalFunc: func(ctx context.Context, goal waypoints.Goal) (<-chan waypoints.Event, error) {
			return script(goal, statuses, missed), nil
		},
	}
}

func TestFollowSucceeds(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	client := scriptedClient([]waypoints.Status{
		waypoints.StatusPending, waypoints.StatusAccepted, waypoints.StatusAccepted, waypoints.StatusSucceeded,
	}, nil)

	req, err := waypoints.Follow(context.Background(), client, route, clock.New(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Status(), test.ShouldEqual, waypoints.StatusSucceeded)
	test.That(t, req.Goal.Waypoints, test.ShouldResemble, route)
	test.That(t, logs.FilterMessage("goal succeeded").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("missed waypoint").Len(), test.ShouldEqual, 0)
}

func TestFollowReportsMissedWaypoints(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	client := scriptedClient([]waypoints.Status{waypoints.StatusAccepted, waypoints.StatusAborted}, []int{1, 7})

	req, err := waypoints.Follow(context.Background(), client, route, clock.New(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Status(), test.ShouldEqual, waypoints.StatusAborted)
	test.That(t, req.Missed(), test.ShouldResemble, []int{1, 7})
	missed := logs.FilterMessage("missed waypoint").All()
	test.That(t, missed, test.ShouldHaveLength, 1)
	test.That(t, missed[0].ContextMap()["index"], test.ShouldEqual, int64(1))
	test.That(t, logs.FilterMessage("server reported an unknown missed waypoint").Len(), test.ShouldEqual, 1)
}

func TestFollowIgnoresInvalidEvents(t *testing.T) {
	logger := logging.NewTestLogger(t)
	client := scriptedClient([]waypoints.Status{
		waypoints.StatusSucceeded, waypoints.StatusAccepted, waypoints.StatusCanceled,
	}, nil)
	req, err := waypoints.Follow(context.Background(), client, route, clock.New(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Status(), test.ShouldEqual, waypoints.StatusCanceled)
}

func TestFollowFailures(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("server unavailable", func(t *testing.T) {
		sent := false
		client := &inject.ActionClient{
			WaitForServerFunc: func(ctx context.Context) error { return errors.New("no server") },
			SendGoalFunc: func(ctx context.Context, goal waypoints.Goal) (<-chan waypoints.Event, error) {
				sent = true
				return nil, nil
			},
		}
		req, err := waypoints.Follow(context.Background(), client, route, clock.New(), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "not available")
		test.That(t, req, test.ShouldBeNil)
		test.That(t, sent, test.ShouldBeFalse)
	})

	t.Run("server wait is bounded", func(t *testing.T) {
		clk := clock.NewMock()
		client := &inject.ActionClient{
			WaitForServerFunc: func(ctx context.Context) error {
				clk.Add(waypoints.ServerWaitTimeout)
				<-ctx.Done()
				return ctx.Err()
			},
		}
		_, err := waypoints.Follow(context.Background(), client, route, clk, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "not available after 5s")
	})

	t.Run("stream ends early", func(t *testing.T) {
		client := scriptedClient(nil, nil)
		client.SendGoalFunc = func(ctx context.Context, goal waypoints.Goal) (<-chan waypoints.Event, error) {
			events := script(goal, []waypoints.Status{waypoints.StatusAccepted}, nil)
			close(events)
			return events, nil
		}
		req, err := waypoints.Follow(context.Background(), client, route, clock.New(), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, req.Status(), test.ShouldEqual, waypoints.StatusAccepted)
	})

	t.Run("canceled", func(t *testing.T) {
		client := scriptedClient(nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		client.SendGoalFunc = func(context.Context, waypoints.Goal) (<-chan waypoints.Event, error) {
			cancel()
			return make(chan waypoints.Event), nil
		}
		req, err := waypoints.Follow(ctx, client, route, clock.New(), logger)
		test.That(t, err, test.ShouldBeError, context.Canceled)
		test.That(t, req.Status(), test.ShouldEqual, waypoints.StatusPending)
	})
}
