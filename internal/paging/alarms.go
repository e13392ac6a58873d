package paging

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"entityquery/pkg/query"
)

var defaultAlarmSortOrder = query.EntityDataSortOrder{
	Key:       query.EntityKey{Type: query.EntityKeyTypeAlarmField, Key: "createdTime"},
	Direction: query.DirectionDesc,
}

// PageAlarms applies the time range, allow-lists, propagation flag, text
// search and sort order of link to alarms, then slices the requested page.
// now anchors a relative timeWindow.
func PageAlarms(alarms []query.AlarmData, link query.AlarmDataPageLink, now time.Time) (query.PageData[query.AlarmData], error) {
	if err := link.Validate(); err != nil {
		return query.PageData[query.AlarmData]{}, err
	}

	from, to, bounded := timeRange(link, now)
	search := strings.ToLower(link.TextSearch)

	rows := make([]query.AlarmData, 0, len(alarms))
	for _, alarm := range alarms {
		if bounded && (alarm.CreatedTime < from || alarm.CreatedTime > to) {
			continue
		}
		if len(link.TypeList) > 0 && !slices.Contains(link.TypeList, alarm.Type) {
			continue
		}
		if len(link.SeverityList) > 0 && !slices.Contains(link.SeverityList, alarm.Severity) {
			continue
		}
		if len(link.StatusList) > 0 && !matchesAnyStatus(link.StatusList, alarm.Status) {
			continue
		}
		if link.ExcludesPropagated() && alarm.Propagated() {
			continue
		}
		if search != "" && !alarmContains(alarm, search) {
			continue
		}
		rows = append(rows, alarm)
	}

	order := defaultAlarmSortOrder
	if link.SortOrder != nil {
		order = *link.SortOrder
	}
	slices.SortStableFunc(rows, func(a, b query.AlarmData) int {
		c := compareSortValues(alarmSortValue(a, order.Key), alarmSortValue(b, order.Key))
		if order.Direction == query.DirectionDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return slicePage(rows, link.PageSize, link.Page), nil
}

// timeRange returns the inclusive createdTime bounds in epoch millis. An
// explicit start or end takes precedence over the time window.
func timeRange(link query.AlarmDataPageLink, now time.Time) (from, to int64, bounded bool) {
	from, to = 0, math.MaxInt64
	switch {
	case link.StartTs != nil || link.EndTs != nil:
		if link.StartTs != nil {
			from = *link.StartTs
		}
		if link.EndTs != nil {
			to = *link.EndTs
		}
		return from, to, true
	case link.TimeWindow != nil && *link.TimeWindow > 0:
		end := now.UnixMilli()
		return end - *link.TimeWindow, end, true
	}
	return from, to, false
}

func matchesAnyStatus(statuses []query.AlarmSearchStatus, status query.AlarmStatus) bool {
	for _, s := range statuses {
		if s.Matches(status) {
			return true
		}
	}
	return false
}

func alarmContains(alarm query.AlarmData, search string) bool {
	for _, field := range []string{alarm.Type, alarm.OriginatorName, string(alarm.Severity), string(alarm.Status)} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func alarmSortValue(alarm query.AlarmData, key query.EntityKey) sortValue {
	if key.Type != query.EntityKeyTypeAlarmField {
		value, ok := alarm.Latest.Lookup(key)
		return sortValue{raw: value.Value, present: ok}
	}

	millis := func(v int64) sortValue {
		return sortValue{raw: strconv.FormatInt(v, 10), present: true}
	}
	switch key.Key {
	case "createdTime":
		return millis(alarm.CreatedTime)
	case "startTs":
		return millis(alarm.StartTs)
	case "endTs":
		return millis(alarm.EndTs)
	case "ackTs":
		return millis(alarm.AckTs)
	case "clearTs":
		return millis(alarm.ClearTs)
	case "type":
		return sortValue{raw: alarm.Type, present: true}
	case "severity":
		// CRITICAL first in ascending order
		return sortValue{raw: strconv.Itoa(alarm.Severity.Rank()), present: true}
	case "status":
		return sortValue{raw: string(alarm.Status), present: true}
	case "originator":
		return sortValue{raw: alarm.OriginatorName, present: true}
	}
	return sortValue{}
}
