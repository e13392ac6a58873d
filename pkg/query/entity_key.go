package query

import (
	"fmt"
	"slices"
)

type EntityKeyType string

const (
	EntityKeyTypeAttribute       EntityKeyType = "ATTRIBUTE"
	EntityKeyTypeClientAttribute EntityKeyType = "CLIENT_ATTRIBUTE"
	EntityKeyTypeSharedAttribute EntityKeyType = "SHARED_ATTRIBUTE"
	EntityKeyTypeServerAttribute EntityKeyType = "SERVER_ATTRIBUTE"
	EntityKeyTypeTimeSeries      EntityKeyType = "TIME_SERIES"
	EntityKeyTypeEntityField     EntityKeyType = "ENTITY_FIELD"
	EntityKeyTypeAlarmField      EntityKeyType = "ALARM_FIELD"
)

var entityKeyTypes = []EntityKeyType{
	EntityKeyTypeAttribute,
	EntityKeyTypeClientAttribute,
	EntityKeyTypeSharedAttribute,
	EntityKeyTypeServerAttribute,
	EntityKeyTypeTimeSeries,
	EntityKeyTypeEntityField,
	EntityKeyTypeAlarmField,
}

func (t EntityKeyType) Valid() bool { return slices.Contains(entityKeyTypes, t) }

func (t *EntityKeyType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, entityKeyTypes, "entity key type")
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// EntityKey names a value on an entity. The type is always explicit and is
// never inferred from the key name.
type EntityKey struct {
	Type EntityKeyType `json:"type"`
	Key  string        `json:"key"`
}

func (k EntityKey) String() string {
	return string(k.Type) + "." + k.Key
}

// DataKeyType is the widget-side classification of a data key.
type DataKeyType string

const (
	DataKeyTypeTimeseries  DataKeyType = "timeseries"
	DataKeyTypeAttribute   DataKeyType = "attribute"
	DataKeyTypeFunction    DataKeyType = "function"
	DataKeyTypeAlarm       DataKeyType = "alarm"
	DataKeyTypeEntityField DataKeyType = "entityField"
)

var dataKeyTypes = []DataKeyType{
	DataKeyTypeTimeseries,
	DataKeyTypeAttribute,
	DataKeyTypeFunction,
	DataKeyTypeAlarm,
	DataKeyTypeEntityField,
}

func (t DataKeyType) Valid() bool { return slices.Contains(dataKeyTypes, t) }

func (t *DataKeyType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, dataKeyTypes, "data key type")
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type DataKey struct {
	Name  string      `json:"name"`
	Type  DataKeyType `json:"type"`
	Label string      `json:"label,omitempty"`
}

// DataKeyTypeToEntityKeyType maps a data key type onto the entity key space.
// Both function and entityField collapse onto ENTITY_FIELD, so the mapping
// cannot be inverted. Passing a type outside the closed set panics.
func DataKeyTypeToEntityKeyType(t DataKeyType) EntityKeyType {
	switch t {
	case DataKeyTypeTimeseries:
		return EntityKeyTypeTimeSeries
	case DataKeyTypeAttribute:
		return EntityKeyTypeAttribute
	case DataKeyTypeFunction:
		return EntityKeyTypeEntityField
	case DataKeyTypeAlarm:
		return EntityKeyTypeAlarmField
	case DataKeyTypeEntityField:
		return EntityKeyTypeEntityField
	}
	panic(fmt.Sprintf("query: unknown data key type %q", string(t)))
}

func DataKeyToEntityKey(dataKey DataKey) EntityKey {
	return EntityKey{
		Key:  dataKey.Name,
		Type: DataKeyTypeToEntityKeyType(dataKey.Type),
	}
}
