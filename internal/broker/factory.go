package broker

import (
	"fmt"

	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/logger"
)

// New builds the producer and consumer pair for cfg.Type. Broker type
// "none" (or empty) runs a single replica with no event traffic. The
// consumer labels its metrics with serviceName.
func New(cfg config.BrokerConfig, serviceName string, log logger.Logger) (Producer, Consumer, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		consumer := NewKafkaConsumer(cfg.Kafka, log)
		consumer.serviceName = serviceName
		return NewKafkaProducer(cfg.Kafka, log), consumer, nil
	case constants.BrokerTypeNone, "":
		return NoopProducer{}, &NoopConsumer{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown broker type %q, want %q or %q",
			cfg.Type, constants.BrokerTypeKafka, constants.BrokerTypeNone)
	}
}
