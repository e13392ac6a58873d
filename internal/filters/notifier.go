package filters

import (
	"context"
	"time"

	"entityquery/internal/broker"
	"entityquery/internal/constants"
	"entityquery/pkg/logging"
	"entityquery/pkg/metrics"
	"entityquery/pkg/models"
)

// EventPublisher announces saved filter changes on the filter events topic.
type EventPublisher struct {
	producer broker.Producer
	topic    string
}

func NewEventPublisher(producer broker.Producer, topic string) *EventPublisher {
	if topic == "" {
		topic = constants.DefaultFilterEventsTopic
	}
	return &EventPublisher{producer: producer, topic: topic}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, filter *SavedFilter, changedBy string) error {
	if p == nil || p.producer == nil {
		return nil
	}

	event := models.FilterEvent{
		EventType: eventType,
		FilterID:  filter.ID,
		TenantID:  filter.TenantID,
		Name:      filter.Filter,
		Timestamp: time.Now().UTC(),
		ChangedBy: changedBy,
	}

	envelope, err := models.NewMessageEnvelopeBuilder().
		WithSource(constants.ServiceName).
		WithTraceID(logging.GetTraceID(ctx)).
		WithPayload(event).
		Build()
	if err != nil {
		return err
	}

	if err := p.producer.Publish(logging.WithFilterID(ctx, filter.ID), p.topic, *envelope); err != nil {
		return err
	}
	metrics.IncFilterEvent(eventType, "published")
	return nil
}
