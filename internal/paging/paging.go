// Package paging applies text search, sort order and page slicing to result
// rows that were already filtered by key filters.
package paging

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"entityquery/pkg/query"
)

// Options tune entity paging.
type Options struct {
	// SearchKey is the field matched by the page link's text search.
	SearchKey query.EntityKey
}

func DefaultOptions() Options {
	return Options{
		SearchKey: query.EntityKey{Type: query.EntityKeyTypeEntityField, Key: "name"},
	}
}

// PageEntities searches, sorts and slices entities according to link. The
// input slice is not modified.
func PageEntities(entities []query.EntityData, link query.EntityDataPageLink, opts Options) (query.PageData[query.EntityData], error) {
	if err := link.Validate(); err != nil {
		return query.PageData[query.EntityData]{}, err
	}
	if opts.SearchKey.Key == "" {
		opts.SearchKey = DefaultOptions().SearchKey
	}

	rows := make([]query.EntityData, 0, len(entities))
	search := strings.ToLower(link.TextSearch)
	for _, entity := range entities {
		if search != "" {
			value, ok := entity.Latest.Lookup(opts.SearchKey)
			if !ok || !strings.Contains(strings.ToLower(value.Value), search) {
				continue
			}
		}
		rows = append(rows, entity)
	}

	slices.SortStableFunc(rows, func(a, b query.EntityData) int {
		if link.SortOrder != nil {
			c := compareSortValues(
				entitySortValue(a, link.SortOrder.Key),
				entitySortValue(b, link.SortOrder.Key),
			)
			if link.SortOrder.Direction == query.DirectionDesc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.EntityID.ID, b.EntityID.ID)
	})

	return slicePage(rows, link.PageSize, link.Page), nil
}

// sortValue is a row's value under the sort key.
type sortValue struct {
	raw     string
	present bool
}

func entitySortValue(entity query.EntityData, key query.EntityKey) sortValue {
	value, ok := entity.Latest.Lookup(key)
	return sortValue{raw: value.Value, present: ok}
}

// Sort classes, in ascending order.
const (
	classMissing = iota
	classNumeric
	classText
)

func (v sortValue) class() (int, float64) {
	if !v.present {
		return classMissing, 0
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64); err == nil {
		return classNumeric, n
	}
	return classText, 0
}

// compareSortValues orders missing values first, then numbers by value,
// then everything else lexically. Class is compared first so that a column
// mixing numbers and text still sorts as a total order.
func compareSortValues(a, b sortValue) int {
	ac, an := a.class()
	bc, bn := b.class()
	if c := cmp.Compare(ac, bc); c != 0 {
		return c
	}
	switch ac {
	case classNumeric:
		return cmp.Compare(an, bn)
	case classText:
		return strings.Compare(a.raw, b.raw)
	}
	return 0
}

func slicePage[T any](rows []T, pageSize, page int) query.PageData[T] {
	total := len(rows)
	totalPages := 0
	if pageSize > 0 {
		totalPages = total / pageSize
		if total%pageSize != 0 {
			totalPages++
		}
	}

	data := []T{}
	// page is caller controlled; compare before multiplying so a huge page
	// cannot overflow the offset.
	if page < totalPages {
		from := page * pageSize
		to := min(from+pageSize, total)
		data = append(data, rows[from:to]...)
	}

	return query.PageData[T]{
		Data:          data,
		TotalPages:    totalPages,
		TotalElements: total,
		HasNext:       page < totalPages-1,
	}
}
