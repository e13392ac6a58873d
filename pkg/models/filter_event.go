package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FilterEvent announces a change to a saved filter. Query service replicas
// drop their cached copy of the filter when they receive one.
type FilterEvent struct {
	EventType string    `json:"event_type"`
	FilterID  string    `json:"filter_id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ChangedBy string    `json:"changed_by,omitempty"`
}

const (
	EventTypeFilterCreated = "filter_created"
	EventTypeFilterUpdated = "filter_updated"
	EventTypeFilterDeleted = "filter_deleted"
)

// DecodeFilterEvent reads the filter event carried by msg.
func DecodeFilterEvent(msg MessageEnvelope) (FilterEvent, error) {
	var event FilterEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return FilterEvent{}, fmt.Errorf("failed to decode filter event %s: %w", msg.ID, err)
	}
	if err := ValidateFilterEvent(&event); err != nil {
		return FilterEvent{}, err
	}
	return event, nil
}
