package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"entityquery/internal/broker"
	"entityquery/internal/config"
	"entityquery/internal/logger"
)

// Base holds what every entry point needs: configuration, the logger and
// the filter event broker.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker connects the producer and consumer for the configured broker
// type. With broker type "none" both are no-ops.
func (b *Base) InitBroker(serviceName string) error {
	producer, consumer, err := broker.New(b.Config.Broker, serviceName, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}
	b.Producer, b.Consumer = producer, consumer
	return nil
}

func (b *Base) shutdownBroker() []error {
	var errs []error
	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close: %w", err))
		}
	}
	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close: %w", err))
		}
	}
	return errs
}

// Shutdown closes the broker, then runs additional and joins every error.
func (b *Base) Shutdown(ctx context.Context, additional func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application")

	errs := b.shutdownBroker()
	if additional != nil {
		errs = append(errs, additional(ctx)...)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
