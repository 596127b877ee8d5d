package inject

import (
	"context"

	"go.viam.com/pursuit/publisher"
)

// Publisher is an injectable publisher.Publisher.
type Publisher struct {
	publisher.Publisher
	OpenFunc    func(ctx context.Context) error
	PublishFunc func(topic string, payload interface{}) error
	CloseFunc   func(ctx context.Context) error
}

// Open calls the injected OpenFunc or the real variant.
func (p *Publisher) Open(ctx context.Context) error {
	if p.OpenFunc == nil {
		return p.Publisher.Open(ctx)
	}
	return p.OpenFunc(ctx)
}

// Publish calls the injected PublishFunc or the real variant.
func (p *Publisher) Publish(topic string, payload interface{}) error {
	if p.PublishFunc == nil {
		return p.Publisher.Publish(topic, payload)
	}
	return p.PublishFunc(topic, payload)
}

// Close calls the injected CloseFunc or the real variant.
func (p *Publisher) Close(ctx context.Context) error {
	if p.CloseFunc == nil {
		return p.Publisher.Close(ctx)
	}
	return p.CloseFunc(ctx)
}
