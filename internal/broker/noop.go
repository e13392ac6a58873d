package broker

import (
	"context"

	"entityquery/pkg/models"
)

// NoopProducer drops every message. It backs a single-replica deployment
// where no other instance needs to hear about filter changes.
type NoopProducer struct{}

func (NoopProducer) Publish(context.Context, string, models.MessageEnvelope) error { return nil }

func (NoopProducer) Close() error { return nil }

// NoopConsumer never delivers a message.
type NoopConsumer struct{}

func (*NoopConsumer) Consume(ctx context.Context, _ string, _ HandlerFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func (*NoopConsumer) Close() error { return nil }
