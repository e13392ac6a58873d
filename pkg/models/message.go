package models

import (
	"encoding/json"
	"time"
)

type MessageEnvelope struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  Metadata        `json:"metadata"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	// Set when the message was parked on the dead letter topic.
	DLQReason      string     `json:"dlq_reason,omitempty"`
	DLQSourceTopic string     `json:"dlq_source_topic,omitempty"`
	DLQTimestamp   *time.Time `json:"dlq_timestamp,omitempty"`
}
