package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	}
	if msg.ID == "" {
		return &ValidationError{Field: "id", Message: "message ID is required"}
	}
	if msg.Source == "" {
		return &ValidationError{Field: "source", Message: "message source is required"}
	}
	if msg.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "message timestamp is required"}
	}
	if len(msg.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "message payload cannot be empty"}
	}
	return nil
}

func ValidateFilterEvent(event *FilterEvent) error {
	switch event.EventType {
	case EventTypeFilterCreated, EventTypeFilterUpdated, EventTypeFilterDeleted:
	case "":
		return &ValidationError{Field: "event_type", Message: "event type is required"}
	default:
		return &ValidationError{Field: "event_type", Message: fmt.Sprintf("unknown event type %q", event.EventType)}
	}
	if event.FilterID == "" {
		return &ValidationError{Field: "filter_id", Message: "filter ID is required"}
	}
	if event.TenantID == "" {
		return &ValidationError{Field: "tenant_id", Message: "tenant ID is required"}
	}
	return nil
}
