package inject

import (
	"context"

	"go.viam.com/pursuit/gps/waypoints"
)

// ActionClient is an injectable waypoints.ActionClient.
type ActionClient struct {
	waypoints.ActionClient
	WaitForServerFunc func(ctx context.Context) error
	SendGoalFunc      func(ctx context.Context, goal waypoints.Goal) (<-chan waypoints.Event, error)
	CloseFunc         func(ctx context.Context) error
}

// WaitForServer calls the injected WaitForServerFunc or the real variant.
func (c *ActionClient) WaitForServer(ctx context.Context) error {
	if c.WaitForServerFunc == nil {
		return c.ActionClient.WaitForServer(ctx)
	}
	return c.WaitForServerFunc(ctx)
}

// SendGoal calls the injected SendGoalFunc or the real variant.
func (c *ActionClient) SendGoal(ctx context.Context, goal waypoints.Goal) (<-chan waypoints.Event, error) {
	if c.SendGoalFunc == nil {
		return c.ActionClient.SendGoal(ctx, goal)
	}
	return c.SendGoalFunc(ctx, goal)
}

// Close calls the injected CloseFunc or the real variant.
func (c *ActionClient) Close(ctx context.Context) error {
	if c.CloseFunc == nil {
		return c.ActionClient.Close(ctx)
	}
	return c.CloseFunc(ctx)
}
