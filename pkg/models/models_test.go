package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_FilterEvent(t *testing.T) {
	event := FilterEvent{
		EventType: EventTypeFilterUpdated,
		FilterID:  "f-1",
		TenantID:  "tenant-1",
		Name:      "overheating",
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	msg, err := NewMessageEnvelopeBuilder().
		WithSource("query-service").
		WithTraceID("trace-1").
		WithPayload(event).
		Build()
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "trace-1", msg.Metadata.TraceID)

	decoded, err := DecodeFilterEvent(*msg)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestBuilder_RequiresSource(t *testing.T) {
	_, err := NewMessageEnvelopeBuilder().WithPayload(FilterEvent{}).Build()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source", verr.Field)
}

func TestBuilder_UnmarshalablePayload(t *testing.T) {
	_, err := NewMessageEnvelopeBuilder().WithSource("s").WithPayload(make(chan int)).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal payload")
}

func TestValidateFilterEvent(t *testing.T) {
	tests := []struct {
		name  string
		event FilterEvent
		field string
	}{
		{"valid", FilterEvent{EventType: EventTypeFilterDeleted, FilterID: "f", TenantID: "t"}, ""},
		{"missing type", FilterEvent{FilterID: "f", TenantID: "t"}, "event_type"},
		{"unknown type", FilterEvent{EventType: "filter_renamed", FilterID: "f", TenantID: "t"}, "event_type"},
		{"missing filter", FilterEvent{EventType: EventTypeFilterCreated, TenantID: "t"}, "filter_id"},
		{"missing tenant", FilterEvent{EventType: EventTypeFilterCreated, FilterID: "f"}, "tenant_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilterEvent(&tt.event)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDecodeFilterEvent_Corrupt(t *testing.T) {
	_, err := DecodeFilterEvent(MessageEnvelope{ID: "m-1", Payload: []byte(`{`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m-1")
}
