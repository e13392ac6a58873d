package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "entityquery/pkg/errors"
)

func TestEntityDataPageLinkSortDirection(t *testing.T) {
	key := EntityKey{Type: EntityKeyTypeEntityField, Key: "name"}

	assert.Equal(t, "", EntityDataPageLinkSortDirection(EntityDataPageLink{PageSize: 1}))
	assert.Equal(t, "asc", EntityDataPageLinkSortDirection(EntityDataPageLink{
		PageSize:  1,
		SortOrder: &EntityDataSortOrder{Key: key, Direction: DirectionAsc},
	}))
	assert.Equal(t, "desc", EntityDataPageLinkSortDirection(EntityDataPageLink{
		PageSize:  1,
		SortOrder: &EntityDataSortOrder{Key: key, Direction: DirectionDesc},
	}))
}

func TestAlarmDataPageLink_UnmarshalFlat(t *testing.T) {
	body := `{
		"pageSize": 20, "page": 1, "textSearch": "boiler",
		"sortOrder": {"key": {"type": "ALARM_FIELD", "key": "createdTime"}, "direction": "DESC"},
		"startTs": 1000, "endTs": 2000,
		"typeList": ["High Temperature"],
		"statusList": ["ACTIVE"],
		"severityList": ["CRITICAL", "MAJOR"],
		"searchPropagatedAlarms": true
	}`

	var link AlarmDataPageLink
	require.NoError(t, json.Unmarshal([]byte(body), &link))

	assert.Equal(t, 20, link.PageSize)
	assert.Equal(t, 1, link.Page)
	assert.Equal(t, "boiler", link.TextSearch)
	require.NotNil(t, link.SortOrder)
	assert.Equal(t, DirectionDesc, link.SortOrder.Direction)
	require.NotNil(t, link.StartTs)
	assert.Equal(t, int64(1000), *link.StartTs)
	assert.Nil(t, link.TimeWindow)
	assert.Equal(t, []AlarmSearchStatus{AlarmSearchStatusActive}, link.StatusList)
	assert.Equal(t, []AlarmSeverity{AlarmSeverityCritical, AlarmSeverityMajor}, link.SeverityList)
	require.NotNil(t, link.SearchPropagatedAlarms)
	assert.True(t, *link.SearchPropagatedAlarms)
	assert.False(t, link.ExcludesPropagated())
	assert.NoError(t, link.Validate())
}

func TestAlarmDataPageLink_UnknownStatus(t *testing.T) {
	var link AlarmDataPageLink
	err := json.Unmarshal([]byte(`{"pageSize":1,"statusList":["OPEN"]}`), &link)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfiguration(err))
}

func TestAlarmSearchStatus_Matches(t *testing.T) {
	tests := []struct {
		search AlarmSearchStatus
		want   map[AlarmStatus]bool
	}{
		{AlarmSearchStatusAny, map[AlarmStatus]bool{
			AlarmStatusActiveUnack: true, AlarmStatusActiveAck: true, AlarmStatusClearedUnack: true, AlarmStatusClearedAck: true,
		}},
		{AlarmSearchStatusActive, map[AlarmStatus]bool{
			AlarmStatusActiveUnack: true, AlarmStatusActiveAck: true, AlarmStatusClearedUnack: false, AlarmStatusClearedAck: false,
		}},
		{AlarmSearchStatusCleared, map[AlarmStatus]bool{
			AlarmStatusActiveUnack: false, AlarmStatusActiveAck: false, AlarmStatusClearedUnack: true, AlarmStatusClearedAck: true,
		}},
		{AlarmSearchStatusAck, map[AlarmStatus]bool{
			AlarmStatusActiveUnack: false, AlarmStatusActiveAck: true, AlarmStatusClearedUnack: false, AlarmStatusClearedAck: true,
		}},
		{AlarmSearchStatusUnack, map[AlarmStatus]bool{
			AlarmStatusActiveUnack: true, AlarmStatusActiveAck: false, AlarmStatusClearedUnack: true, AlarmStatusClearedAck: false,
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.search), func(t *testing.T) {
			for status, want := range tt.want {
				assert.Equal(t, want, tt.search.Matches(status), "status %s", status)
			}
		})
	}
}

func TestLatestValues(t *testing.T) {
	latest := LatestValues{}
	latest.Set(EntityKeyTypeTimeSeries, "temperature", TsValue{Ts: 10, Value: "21.5"})

	value, ok := latest.Get(EntityKeyTypeTimeSeries, "temperature")
	require.True(t, ok)
	assert.Equal(t, "21.5", value.Value)

	_, ok = latest.Get(EntityKeyTypeAttribute, "temperature")
	assert.False(t, ok)
}

func TestDefaultOperationLabels_FreshCopy(t *testing.T) {
	labels := DefaultOperationLabels()
	labels.String[StringOperationEqual] = "custom"

	assert.Equal(t, "filter.operation.equal", DefaultOperationLabels().StringLabel(StringOperationEqual))
	assert.Equal(t, "filter.operation.greater-or-equal", labels.NumericLabel(NumericOperationGreaterOrEqual))
	assert.Equal(t, "filter.current-customer", labels.DynamicSourceLabel(DynamicValueSourceCurrentCustomer))
	assert.Equal(t, "NOT_SUPPORTED", labels.StringLabel(StringOperation("NOT_SUPPORTED")))
}
