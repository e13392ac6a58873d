package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "entityquery/pkg/errors"
)

const temperatureFilterJSON = `{
  "key": {"type": "ATTRIBUTE", "key": "temperature"},
  "valueType": "NUMERIC",
  "predicate": {"type": "NUMERIC", "operation": "GREATER",
                "value": {"defaultValue": 20}}
}`

func TestKeyFilter_Unmarshal(t *testing.T) {
	var keyFilter KeyFilter
	require.NoError(t, json.Unmarshal([]byte(temperatureFilterJSON), &keyFilter))

	assert.Equal(t, EntityKey{Type: EntityKeyTypeAttribute, Key: "temperature"}, keyFilter.Key)
	assert.Equal(t, EntityKeyValueTypeNumeric, keyFilter.ValueType)

	predicate, ok := keyFilter.Predicate.(NumericFilterPredicate)
	require.True(t, ok)
	assert.Equal(t, NumericOperationGreater, predicate.Operation)
	assert.Equal(t, 20.0, predicate.Value.DefaultValue)
	assert.Nil(t, predicate.Value.UserValue)
	assert.Nil(t, predicate.Value.DynamicValue)
}

func TestKeyFilter_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "unknown operation",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"NUMERIC",
				"predicate":{"type":"NUMERIC","operation":"ABOUT","value":{"defaultValue":1}}}`,
		},
		{
			name: "unknown predicate type",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"NUMERIC",
				"predicate":{"type":"REGEX","operation":"EQUAL","value":{"defaultValue":1}}}`,
		},
		{
			name: "unknown value type",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"JSON",
				"predicate":{"type":"NUMERIC","operation":"EQUAL","value":{"defaultValue":1}}}`,
		},
		{
			name: "missing default value",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"NUMERIC",
				"predicate":{"type":"NUMERIC","operation":"EQUAL","value":{"userValue":1}}}`,
		},
		{
			name: "missing predicate",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"NUMERIC"}`,
		},
		{
			name: "missing predicate type",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"NUMERIC",
				"predicate":{"operation":"EQUAL","value":{"defaultValue":1}}}`,
		},
		{
			name: "unknown dynamic source",
			body: `{"key":{"type":"ATTRIBUTE","key":"t"},"valueType":"STRING",
				"predicate":{"type":"STRING","operation":"EQUAL","ignoreCase":false,
				"value":{"defaultValue":"","dynamicValue":{"sourceType":"CURRENT_DEVICE","sourceAttribute":"x"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keyFilter KeyFilter
			err := json.Unmarshal([]byte(tt.body), &keyFilter)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestFilter_RoundTrip(t *testing.T) {
	userValue := "ACME"
	order := 1
	filter := Filter{
		ID: "6f1d4c7e-1a44-4a52-9f55-0c6b0c3f0a11",
		FilterInfo: FilterInfo{
			Filter:   "Hot devices of my customer",
			Editable: true,
			KeyFilters: []KeyFilterInfo{
				{
					Key:       EntityKey{Type: EntityKeyTypeTimeSeries, Key: "temperature"},
					ValueType: EntityKeyValueTypeNumeric,
					Predicates: []KeyFilterPredicateInfo{
						{
							KeyFilterPredicate: NumericFilterPredicate{
								Operation: NumericOperationGreaterOrEqual,
								Value: FilterPredicateValue[float64]{
									DefaultValue: 30,
									DynamicValue: &DynamicValue{
										SourceType:      DynamicValueSourceCurrentCustomer,
										SourceAttribute: "maxTemperature",
									},
								},
							},
							UserInfo: KeyFilterPredicateUserInfo{Editable: true, Label: "Threshold", Order: &order},
						},
					},
				},
				{
					Key:       EntityKey{Type: EntityKeyTypeEntityField, Key: "name"},
					ValueType: EntityKeyValueTypeString,
					Predicates: []KeyFilterPredicateInfo{
						{
							KeyFilterPredicate: ComplexFilterPredicateInfo{
								Operation: ComplexOperationOr,
								Predicates: []KeyFilterPredicateInfo{
									{
										KeyFilterPredicate: StringFilterPredicate{
											Operation:  StringOperationStartsWith,
											Value:      FilterPredicateValue[string]{DefaultValue: "dev", UserValue: &userValue},
											IgnoreCase: true,
										},
										UserInfo: KeyFilterPredicateUserInfo{AutogeneratedLabel: true},
									},
									{
										KeyFilterPredicate: StringFilterPredicate{
											Operation: StringOperationNotContains,
											Value:     FilterPredicateValue[string]{DefaultValue: "test"},
										},
									},
								},
							},
						},
					},
				},
				{
					Key:       EntityKey{Type: EntityKeyTypeServerAttribute, Key: "active"},
					ValueType: EntityKeyValueTypeBoolean,
					Predicates: []KeyFilterPredicateInfo{
						{
							KeyFilterPredicate: BooleanFilterPredicate{
								Operation: BooleanOperationEqual,
								Value:     FilterPredicateValue[bool]{DefaultValue: true},
							},
						},
					},
				},
			},
		},
	}

	data, err := json.Marshal(filter)
	require.NoError(t, err)

	var decoded Filter
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, filter, decoded)
}

func TestComplexFilterPredicate_RoundTrip(t *testing.T) {
	keyFilter := KeyFilter{
		Key:       EntityKey{Type: EntityKeyTypeAttribute, Key: "temperature"},
		ValueType: EntityKeyValueTypeNumeric,
		Predicate: ComplexFilterPredicate{
			Operation: ComplexOperationAnd,
			Predicates: []KeyFilterPredicate{
				NumericFilterPredicate{Operation: NumericOperationGreater, Value: FilterPredicateValue[float64]{DefaultValue: 10}},
				ComplexFilterPredicate{
					Operation: ComplexOperationOr,
					Predicates: []KeyFilterPredicate{
						NumericFilterPredicate{Operation: NumericOperationLess, Value: FilterPredicateValue[float64]{DefaultValue: 50.5}},
						NumericFilterPredicate{Operation: NumericOperationEqual, Value: FilterPredicateValue[float64]{DefaultValue: 99}},
					},
				},
			},
		},
	}

	data, err := json.Marshal(keyFilter)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"COMPLEX"`)

	var decoded KeyFilter
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, keyFilter, decoded)
}

func TestUnmarshalKeyFilterPredicate_ComplexChildren(t *testing.T) {
	const bare = `{"type":"NUMERIC","operation":"LESS","value":{"defaultValue":5}}`
	const wrapped = `{"keyFilterPredicate":` + bare + `,"userInfo":{"editable":true}}`

	tests := []struct {
		name     string
		children string
		wantInfo bool
		wantErr  string
	}{
		{name: "all bare", children: bare + "," + bare, wantInfo: false},
		{name: "all wrapped", children: wrapped + "," + wrapped, wantInfo: true},
		{name: "wrapped then bare", children: wrapped + "," + bare, wantErr: "mixes 1 wrapped and 1 bare children"},
		{name: "bare then wrapped", children: bare + "," + wrapped + "," + wrapped, wantErr: "mixes 2 wrapped and 1 bare children"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predicate, err := UnmarshalKeyFilterPredicate([]byte(`{"type":"COMPLEX","operation":"OR","predicates":[` + tt.children + `]}`))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsConfiguration(err), "got %v", err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, isInfo := predicate.(ComplexFilterPredicateInfo)
			assert.Equal(t, tt.wantInfo, isInfo)
			assert.Equal(t, FilterPredicateTypeComplex, predicate.PredicateType())
		})
	}
}

func TestKeyFilterInfo_ToKeyFilter(t *testing.T) {
	greater := KeyFilterPredicateInfo{
		KeyFilterPredicate: NumericFilterPredicate{Operation: NumericOperationGreater, Value: FilterPredicateValue[float64]{DefaultValue: 1}},
		UserInfo:           KeyFilterPredicateUserInfo{Editable: true, Label: "low"},
	}
	less := KeyFilterPredicateInfo{
		KeyFilterPredicate: NumericFilterPredicate{Operation: NumericOperationLess, Value: FilterPredicateValue[float64]{DefaultValue: 9}},
	}
	key := EntityKey{Type: EntityKeyTypeTimeSeries, Key: "level"}

	t.Run("single fragment stands alone", func(t *testing.T) {
		info := KeyFilterInfo{Key: key, ValueType: EntityKeyValueTypeNumeric, Predicates: []KeyFilterPredicateInfo{greater}}
		keyFilter, err := info.ToKeyFilter()
		require.NoError(t, err)
		assert.Equal(t, greater.KeyFilterPredicate, keyFilter.Predicate)
	})

	t.Run("several fragments join with AND in order", func(t *testing.T) {
		info := KeyFilterInfo{Key: key, ValueType: EntityKeyValueTypeNumeric, Predicates: []KeyFilterPredicateInfo{greater, less}}
		keyFilter, err := info.ToKeyFilter()
		require.NoError(t, err)

		complexInfo, ok := keyFilter.Predicate.(ComplexFilterPredicateInfo)
		require.True(t, ok)
		assert.Equal(t, ComplexOperationAnd, complexInfo.Operation)
		require.Len(t, complexInfo.Predicates, 2)
		assert.Equal(t, greater, complexInfo.Predicates[0])
		assert.Equal(t, less, complexInfo.Predicates[1])
	})

	t.Run("no fragments", func(t *testing.T) {
		info := KeyFilterInfo{Key: key, ValueType: EntityKeyValueTypeNumeric}
		_, err := info.ToKeyFilter()
		assert.True(t, pkgerrors.IsConfiguration(err))
	})
}

func TestFilterInfo_KeyFilterSet(t *testing.T) {
	info := FilterInfo{
		Filter: "f",
		KeyFilters: []KeyFilterInfo{
			{
				Key:       EntityKey{Type: EntityKeyTypeEntityField, Key: "type"},
				ValueType: EntityKeyValueTypeString,
				Predicates: []KeyFilterPredicateInfo{{
					KeyFilterPredicate: StringFilterPredicate{Operation: StringOperationEqual, Value: FilterPredicateValue[string]{DefaultValue: "thermostat"}},
				}},
			},
			{Key: EntityKey{Type: EntityKeyTypeEntityField, Key: "name"}, ValueType: EntityKeyValueTypeString},
		},
	}

	_, err := info.KeyFilterSet()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "keyFilters[1]")

	info.KeyFilters = info.KeyFilters[:1]
	set, err := info.KeyFilterSet()
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, EntityKey{Type: EntityKeyTypeEntityField, Key: "type"}, set[0].Key)
}

func TestFilterPredicateValue_WithUserValue(t *testing.T) {
	original := FilterPredicateValue[float64]{DefaultValue: 1}
	bound := original.WithUserValue(5)

	require.NotNil(t, bound.UserValue)
	assert.Equal(t, 5.0, *bound.UserValue)
	assert.Nil(t, original.UserValue)
}
