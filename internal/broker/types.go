// Package broker carries saved filter change events between replicas.
package broker

import (
	"context"

	"entityquery/pkg/models"
)

// HandlerFunc processes one delivered envelope. A fatal error skips the
// remaining retry attempts.
type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error

// Producer publishes envelopes to a topic.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer delivers every message on a topic to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
}
