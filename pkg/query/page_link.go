package query

import "strings"

type EntityDataSortOrder struct {
	Key       EntityKey `json:"key"`
	Direction Direction `json:"direction"`
}

type EntityDataPageLink struct {
	PageSize   int                  `json:"pageSize"`
	Page       int                  `json:"page"`
	TextSearch string               `json:"textSearch,omitempty"`
	SortOrder  *EntityDataSortOrder `json:"sortOrder,omitempty"`
	Dynamic    bool                 `json:"dynamic,omitempty"`
}

// EntityDataPageLinkSortDirection returns "asc" or "desc", or "" when the
// link carries no sort order.
func EntityDataPageLinkSortDirection(link EntityDataPageLink) string {
	if link.SortOrder == nil {
		return ""
	}
	return strings.ToLower(string(link.SortOrder.Direction))
}

// AlarmDataPageLink narrows an alarm query by time and by allow-lists. An
// empty list places no restriction on its dimension.
type AlarmDataPageLink struct {
	EntityDataPageLink
	StartTs                *int64              `json:"startTs,omitempty"`
	EndTs                  *int64              `json:"endTs,omitempty"`
	TimeWindow             *int64              `json:"timeWindow,omitempty"`
	TypeList               []string            `json:"typeList,omitempty"`
	StatusList             []AlarmSearchStatus `json:"statusList,omitempty"`
	SeverityList           []AlarmSeverity     `json:"severityList,omitempty"`
	// SearchPropagatedAlarms excludes propagated alarms only when explicitly
	// false; omitted means no constraint.
	SearchPropagatedAlarms *bool               `json:"searchPropagatedAlarms,omitempty"`
}

// ExcludesPropagated reports whether propagated alarms are filtered out.
func (l AlarmDataPageLink) ExcludesPropagated() bool {
	return l.SearchPropagatedAlarms != nil && !*l.SearchPropagatedAlarms
}
