package querying

import "entityquery/pkg/query"

// EntityQuery asks which of the supplied entities pass a key filter set. The
// set is either inline or the id of a saved filter, never both.
type EntityQuery struct {
	FilterID   string                   `json:"filterId,omitempty"`
	KeyFilters []query.KeyFilter        `json:"keyFilters,omitempty"`
	Entities   []query.EntityData       `json:"entities"`
	PageLink   query.EntityDataPageLink `json:"pageLink"`
}

type AlarmQuery struct {
	FilterID   string                  `json:"filterId,omitempty"`
	KeyFilters []query.KeyFilter       `json:"keyFilters,omitempty"`
	Alarms     []query.AlarmData       `json:"alarms"`
	PageLink   query.AlarmDataPageLink `json:"pageLink"`
}

// CELExport is a saved filter bound for one principal and rendered as CEL.
type CELExport struct {
	FilterID   string `json:"filterId"`
	Expression string `json:"expression"`
}
