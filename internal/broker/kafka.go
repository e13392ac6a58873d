package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/logger"
	"entityquery/pkg/errors"
	"entityquery/pkg/logging"
	"entityquery/pkg/metrics"
	"entityquery/pkg/models"
	"entityquery/pkg/retry"
	"entityquery/pkg/tracing"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, logger: log}
}

// Publish writes msg keyed by its ID. Filter events are keyed by filter so
// that one filter's changes stay ordered within a partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := msg.ID
	if filterID := logging.GetFilterID(ctx); filterID != "" {
		key = filterID
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   body,
		Headers: tracing.InjectTraceContext(ctx, nil),
		Time:    start,
	})
	metrics.ObserveKafkaWriteDuration(constants.ServiceName, topic, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to write kafka message to %s: %w", topic, err)
	}

	metrics.IncKafkaMessagesWritten(constants.ServiceName, topic)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	mu          sync.Mutex
	reader      *kafka.Reader
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
	groupID     string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: constants.ServiceName,
		groupID:     ConsumerGroupID(cfg, replicaID()),
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

// ConsumerGroupID is the group a consumer joins. With GroupPerReplica each
// replica joins its own group, so every replica receives every event.
func ConsumerGroupID(cfg config.KafkaConfig, replica string) string {
	if !cfg.GroupPerReplica || replica == "" {
		return cfg.GroupID
	}
	return cfg.GroupID + "-" + replica
}

func replicaID() string {
	suffix := uuid.NewString()[:8]
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "-" + suffix
	}
	return suffix
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.groupID,
		"service_name", c.serviceName,
	)

	readerCfg := kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if c.cfg.GroupPerReplica {
		// A fresh replica starts with an empty cache, so older events are moot.
		readerCfg.StartOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(readerCfg)
	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consumeLoop(logging.WithServiceName(ctx, c.serviceName), reader, topic, handler)
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context, reader *kafka.Reader, topic string, handler HandlerFunc) {
	c.logger.InfowCtx(ctx, "Started consuming", "topic", topic)

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(ctx, "Stopped consuming",
					"topic", topic,
					"reason", "context canceled",
				)
				return
			}
			c.logger.ErrorwCtx(ctx, "Error fetching kafka message",
				"error", err,
				"topic", topic,
			)
			time.Sleep(time.Second)
			continue
		}
		metrics.IncKafkaMessagesRead(c.serviceName, topic)

		c.handleMessage(ctx, m, topic, handler)

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.ErrorwCtx(ctx, "Failed to commit message",
				"error", err,
				"topic", topic,
			)
		}
	}
}

// handleMessage runs handler with retries. Messages that still fail are
// parked on the DLQ when one is configured; either way the caller commits
// them so that one bad message cannot block the partition.
func (c *KafkaConsumer) handleMessage(ctx context.Context, m kafka.Message, topic string, handler HandlerFunc) {
	var envelope models.MessageEnvelope
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to unmarshal message",
			"error", err,
			"topic", topic,
		)
		metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, topic, "malformed").Inc()
		return
	}

	msgCtx, span := tracing.StartConsumeSpan(ctx, m)
	defer span.End()

	if envelope.Metadata.TraceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, envelope.Metadata.TraceID)
	}
	msgCtx = logging.WithMessageID(msgCtx, envelope.ID)

	err := c.processMessageWithRetry(msgCtx, envelope, handler, topic)
	if err == nil {
		return
	}

	c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries",
		"error", err,
		"topic", topic,
	)
	if c.dlqProducer == nil {
		c.logger.WarnwCtx(msgCtx, "No DLQ configured, committing message to avoid blocking",
			"topic", topic,
		)
		return
	}
	if dlqErr := c.sendToDLQ(msgCtx, envelope, err, topic); dlqErr != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ",
			"error", dlqErr,
			"topic", topic,
		)
	}
}

func (c *KafkaConsumer) Close() error {
	var err error
	c.mu.Lock()
	if c.reader != nil {
		err = c.reader.Close()
	}
	c.mu.Unlock()
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, envelope models.MessageEnvelope, handler HandlerFunc, topic string) error {
	policy := retry.PolicyFromConfig(c.cfg.Retry)

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, envelope)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, envelope models.MessageEnvelope, originalErr error, sourceTopic string) error {
	now := time.Now().UTC()
	envelope.Metadata.DLQReason = originalErr.Error()
	envelope.Metadata.DLQSourceTopic = sourceTopic
	envelope.Metadata.DLQTimestamp = &now

	if err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, envelope); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceTopic, "max_retries_exceeded").Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)

	return nil
}
