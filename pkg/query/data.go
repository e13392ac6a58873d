package query

import (
	"encoding/json"
	"slices"
)

type EntityID struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
}

func (id EntityID) String() string {
	return id.EntityType + ":" + id.ID
}

type TsValue struct {
	Ts    int64  `json:"ts"`
	Value string `json:"value"`
}

// LatestValues maps a key type to the latest value of each key of that type.
type LatestValues map[EntityKeyType]map[string]TsValue

func (l LatestValues) Get(keyType EntityKeyType, key string) (TsValue, bool) {
	values, ok := l[keyType]
	if !ok {
		return TsValue{}, false
	}
	value, ok := values[key]
	return value, ok
}

// Set stores value under keyType/key, allocating the bucket if needed.
func (l LatestValues) Set(keyType EntityKeyType, key string, value TsValue) {
	values, ok := l[keyType]
	if !ok {
		values = make(map[string]TsValue)
		l[keyType] = values
	}
	values[key] = value
}

// attributeScopes is the order searched for a plain ATTRIBUTE key.
var attributeScopes = []EntityKeyType{
	EntityKeyTypeAttribute,
	EntityKeyTypeServerAttribute,
	EntityKeyTypeSharedAttribute,
	EntityKeyTypeClientAttribute,
}

// LookupOrder lists the buckets searched for k, in order. A plain ATTRIBUTE
// key falls back to the server, shared and client scopes.
func (k EntityKey) LookupOrder() []EntityKeyType {
	if k.Type == EntityKeyTypeAttribute {
		return attributeScopes
	}
	return []EntityKeyType{k.Type}
}

// Lookup resolves key against the latest values in LookupOrder.
func (l LatestValues) Lookup(key EntityKey) (TsValue, bool) {
	for _, keyType := range key.LookupOrder() {
		if value, ok := l.Get(keyType, key.Key); ok {
			return value, true
		}
	}
	return TsValue{}, false
}

type EntityData struct {
	EntityID   EntityID             `json:"entityId"`
	Latest     LatestValues         `json:"latest"`
	Timeseries map[string][]TsValue `json:"timeseries,omitempty"`
}

type AlarmSeverity string

const (
	AlarmSeverityCritical      AlarmSeverity = "CRITICAL"
	AlarmSeverityMajor         AlarmSeverity = "MAJOR"
	AlarmSeverityMinor         AlarmSeverity = "MINOR"
	AlarmSeverityWarning       AlarmSeverity = "WARNING"
	AlarmSeverityIndeterminate AlarmSeverity = "INDETERMINATE"
)

var alarmSeverities = []AlarmSeverity{
	AlarmSeverityCritical,
	AlarmSeverityMajor,
	AlarmSeverityMinor,
	AlarmSeverityWarning,
	AlarmSeverityIndeterminate,
}

func (s AlarmSeverity) Valid() bool { return slices.Contains(alarmSeverities, s) }

// Rank orders severities from CRITICAL (0) to INDETERMINATE (4).
func (s AlarmSeverity) Rank() int { return slices.Index(alarmSeverities, s) }

func (s *AlarmSeverity) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, alarmSeverities, "alarm severity")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type AlarmStatus string

const (
	AlarmStatusActiveUnack  AlarmStatus = "ACTIVE_UNACK"
	AlarmStatusActiveAck    AlarmStatus = "ACTIVE_ACK"
	AlarmStatusClearedUnack AlarmStatus = "CLEARED_UNACK"
	AlarmStatusClearedAck   AlarmStatus = "CLEARED_ACK"
)

var alarmStatuses = []AlarmStatus{
	AlarmStatusActiveUnack,
	AlarmStatusActiveAck,
	AlarmStatusClearedUnack,
	AlarmStatusClearedAck,
}

func (s AlarmStatus) Valid() bool { return slices.Contains(alarmStatuses, s) }

func (s AlarmStatus) IsActive() bool {
	return s == AlarmStatusActiveUnack || s == AlarmStatusActiveAck
}

func (s AlarmStatus) IsAck() bool {
	return s == AlarmStatusActiveAck || s == AlarmStatusClearedAck
}

func (s *AlarmStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, alarmStatuses, "alarm status")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type AlarmSearchStatus string

const (
	AlarmSearchStatusAny     AlarmSearchStatus = "ANY"
	AlarmSearchStatusActive  AlarmSearchStatus = "ACTIVE"
	AlarmSearchStatusCleared AlarmSearchStatus = "CLEARED"
	AlarmSearchStatusAck     AlarmSearchStatus = "ACK"
	AlarmSearchStatusUnack   AlarmSearchStatus = "UNACK"
)

var alarmSearchStatuses = []AlarmSearchStatus{
	AlarmSearchStatusAny,
	AlarmSearchStatusActive,
	AlarmSearchStatusCleared,
	AlarmSearchStatusAck,
	AlarmSearchStatusUnack,
}

func (s AlarmSearchStatus) Valid() bool { return slices.Contains(alarmSearchStatuses, s) }

func (s *AlarmSearchStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, alarmSearchStatuses, "alarm search status")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Matches reports whether an alarm in status satisfies the search status.
func (s AlarmSearchStatus) Matches(status AlarmStatus) bool {
	switch s {
	case AlarmSearchStatusAny:
		return true
	case AlarmSearchStatusActive:
		return status.IsActive()
	case AlarmSearchStatusCleared:
		return !status.IsActive()
	case AlarmSearchStatusAck:
		return status.IsAck()
	case AlarmSearchStatusUnack:
		return !status.IsAck()
	}
	return false
}

type AlarmInfo struct {
	ID             string          `json:"id"`
	CreatedTime    int64           `json:"createdTime"`
	Type           string          `json:"type"`
	Originator     EntityID        `json:"originator"`
	OriginatorName string          `json:"originatorName,omitempty"`
	Severity       AlarmSeverity   `json:"severity"`
	Status         AlarmStatus     `json:"status"`
	StartTs        int64           `json:"startTs"`
	EndTs          int64           `json:"endTs"`
	AckTs          int64           `json:"ackTs"`
	ClearTs        int64           `json:"clearTs"`
	Propagate      bool            `json:"propagate"`
	Details        json.RawMessage `json:"details,omitempty"`
}

// AlarmData is an alarm row together with the entity it was found for.
type AlarmData struct {
	AlarmInfo
	EntityID EntityID     `json:"entityId"`
	Latest   LatestValues `json:"latest"`
}

// Propagated reports whether the alarm was raised on another entity and
// reached this row through propagation. A row without an entity id is never
// propagated.
func (a AlarmData) Propagated() bool {
	if a.EntityID == (EntityID{}) {
		return false
	}
	return a.Originator != a.EntityID
}

type PageData[T any] struct {
	Data          []T  `json:"data"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	HasNext       bool `json:"hasNext"`
}
