//go:build integration

package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityquery/internal/config"
	"entityquery/internal/logger"
	"entityquery/internal/testinfra"
	"entityquery/pkg/models"
)

func TestKafka_RoundTrip(t *testing.T) {
	cfg := config.KafkaConfig{
		Brokers: testinfra.Kafka(t),
		GroupID: "query-service-test",
		Retry:   config.RetryConfig{MaxAttempts: 1},
	}
	producer := NewKafkaProducer(cfg, logger.NopLogger())
	consumer := NewKafkaConsumer(cfg, logger.NopLogger())
	t.Cleanup(func() {
		producer.Close()
		consumer.Close()
	})

	msg := models.MessageEnvelope{
		ID:        "evt-1",
		Source:    "query-service",
		Timestamp: time.Now().UTC(),
		Payload:   json.RawMessage(`{"event_type":"filter_deleted","filter_id":"f-1","tenant_id":"tenant-1"}`),
	}

	// The first write may race topic auto-creation.
	require.Eventually(t, func() bool {
		return producer.Publish(context.Background(), "filter_events", msg) == nil
	}, 30*time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	received := make(chan models.MessageEnvelope, 1)
	go func() {
		_ = consumer.Consume(ctx, "filter_events", func(_ context.Context, got models.MessageEnvelope) error {
			received <- got
			cancel()
			return nil
		})
	}()

	select {
	case got := <-received:
		assert.Equal(t, "evt-1", got.ID)
		event, err := models.DecodeFilterEvent(got)
		require.NoError(t, err)
		assert.Equal(t, "f-1", event.FilterID)
	case <-ctx.Done():
		t.Fatal("no message consumed before the deadline")
	}
}
