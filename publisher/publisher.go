// Package publisher contains the observability sinks a controller reports its intermediate state
// to. Publishing is best effort and must never block a control tick.
package publisher

import (
	"context"
)

// Publisher is an observability sink. Open and Close bracket a session; Publish between them
// enqueues a payload for a topic and returns without waiting for delivery.
type Publisher interface {
	Open(ctx context.Context) error
	Publish(topic string, payload interface{}) error
	Close(ctx context.Context) error
}

type noop struct{}

// NewNoop returns a Publisher that discards everything.
func NewNoop() Publisher {
	return noop{}
}

func (noop) Open(ctx context.Context) error                  { return nil }
func (noop) Publish(topic string, payload interface{}) error { return nil }
func (noop) Close(ctx context.Context) error                 { return nil }
