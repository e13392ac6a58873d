package querying

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityquery/pkg/cel"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/query"
)

func TestQueryEntities_InlineFilters(t *testing.T) {
	f := newFixture(t, nil)

	link := firstPage()
	link.SortOrder = &query.EntityDataSortOrder{Key: temperatureKey, Direction: query.DirectionDesc}

	page, err := f.service.QueryEntities(context.Background(), alice, EntityQuery{
		KeyFilters: []query.KeyFilter{aboveTenantMax()},
		Entities:   fleet(),
		PageLink:   link,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d3", "d1"}, ids(page.Data))
	assert.Equal(t, 2, page.TotalElements)
	assert.False(t, page.HasNext)
}

func TestQueryEntities_SavedFilter(t *testing.T) {
	f := newFixture(t, nil)

	page, err := f.service.QueryEntities(context.Background(), alice, EntityQuery{
		FilterID: "f-1",
		Entities: fleet(),
		PageLink: firstPage(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids(page.Data))
}

func TestQueryEntities_NoFiltersMatchesAll(t *testing.T) {
	f := newFixture(t, nil)

	page, err := f.service.QueryEntities(context.Background(), alice, EntityQuery{
		Entities: fleet(),
		PageLink: query.EntityDataPageLink{PageSize: 3, Page: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d4"}, ids(page.Data))
	assert.Equal(t, 4, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
}

func TestQueryEntities_Errors(t *testing.T) {
	emptyAnd := query.KeyFilter{
		Key:       temperatureKey,
		ValueType: query.EntityKeyValueTypeNumeric,
		Predicate: query.ComplexFilterPredicate{Operation: query.ComplexOperationAnd},
	}

	tests := []struct {
		name    string
		maxRows int
		req     EntityQuery
		check   func(error) bool
	}{
		{
			name:  "filter id and inline filters",
			req:   EntityQuery{FilterID: "f-1", KeyFilters: []query.KeyFilter{aboveTenantMax()}, PageLink: firstPage()},
			check: pkgerrors.IsValidation,
		},
		{
			name:  "unknown saved filter",
			req:   EntityQuery{FilterID: "f-404", PageLink: firstPage()},
			check: pkgerrors.IsNotFound,
		},
		{
			name:  "empty complex predicate",
			req:   EntityQuery{KeyFilters: []query.KeyFilter{emptyAnd}, Entities: fleet(), PageLink: firstPage()},
			check: pkgerrors.IsConfiguration,
		},
		{
			name:  "invalid page size",
			req:   EntityQuery{Entities: fleet(), PageLink: query.EntityDataPageLink{PageSize: 0}},
			check: pkgerrors.IsValidation,
		},
		{
			name:  "page size above limit",
			req:   EntityQuery{Entities: fleet(), PageLink: query.EntityDataPageLink{PageSize: 51}},
			check: pkgerrors.IsValidation,
		},
		{
			name:    "too many rows",
			maxRows: 3,
			req:     EntityQuery{Entities: fleet(), PageLink: firstPage()},
			check:   pkgerrors.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, WithMaxRows(tt.maxRows), WithMaxPageSize(50))
			_, err := f.service.QueryEntities(context.Background(), alice, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestQueryEntities_StorageFailure(t *testing.T) {
	f := newFixture(t, failingStore{})

	_, err := f.service.QueryEntities(context.Background(), alice, EntityQuery{
		KeyFilters: []query.KeyFilter{aboveTenantMax()},
		Entities:   fleet(),
		PageLink:   firstPage(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStorageUnavailable(err))
	assert.Equal(t, 503, pkgerrors.ToHTTPStatus(err))
}

func alarm(id string, created int64, entity query.EntityData) query.AlarmData {
	return query.AlarmData{
		AlarmInfo: query.AlarmInfo{
			ID:          id,
			CreatedTime: created,
			Type:        "High Temperature",
			Originator:  entity.EntityID,
			Severity:    query.AlarmSeverityMajor,
			Status:      query.AlarmStatusActiveUnack,
		},
		EntityID: entity.EntityID,
		Latest:   entity.Latest,
	}
}

func TestQueryAlarms(t *testing.T) {
	f := newFixture(t, nil)
	devices := fleet()

	page, err := f.service.QueryAlarms(context.Background(), alice, AlarmQuery{
		KeyFilters: []query.KeyFilter{aboveTenantMax()},
		Alarms: []query.AlarmData{
			alarm("a1", 100, devices[0]),
			alarm("a2", 200, devices[1]),
			alarm("a3", 300, devices[2]),
			alarm("a4", 400, devices[3]),
		},
		PageLink: query.AlarmDataPageLink{EntityDataPageLink: firstPage()},
	})
	require.NoError(t, err)

	got := make([]string, len(page.Data))
	for i, row := range page.Data {
		got[i] = row.ID
	}
	assert.Equal(t, []string{"a3", "a1"}, got)
}

func TestQueryAlarms_StorageFailure(t *testing.T) {
	f := newFixture(t, failingStore{})

	_, err := f.service.QueryAlarms(context.Background(), alice, AlarmQuery{
		KeyFilters: []query.KeyFilter{aboveTenantMax()},
		Alarms:     []query.AlarmData{alarm("a1", 100, fleet()[0])},
		PageLink:   query.AlarmDataPageLink{EntityDataPageLink: firstPage()},
	})
	assert.True(t, pkgerrors.IsStorageUnavailable(err))
}

func TestExportCEL(t *testing.T) {
	f := newFixture(t, nil)

	export, err := f.service.ExportCEL(context.Background(), alice, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "f-1", export.FilterID)
	assert.Contains(t, export.Expression, "> 25.0")
	assert.Contains(t, export.Expression, `.startsWith("device")`)

	_, err = f.service.ExportCEL(context.Background(), alice, "f-404")
	assert.True(t, pkgerrors.IsNotFound(err))
}

// Exported expressions must agree with native evaluation once dynamic values
// are bound for the same principal.
func TestExportedExpressionAgreesWithEvaluator(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	keyFilters := []query.KeyFilter{aboveTenantMax(), namedDevice(), {
		Key:       nameKey,
		ValueType: query.EntityKeyValueTypeString,
		Predicate: query.StringFilterPredicate{
			Operation: query.StringOperationNotContains,
			Value:     query.FilterPredicateValue[string]{DefaultValue: "-9"},
		},
	}}

	bound, err := f.evaluator.Bind(ctx, alice, keyFilters)
	require.NoError(t, err)
	program, err := f.compiler.Compile(bound, cel.CompileOptions{NegationMatchesMissing: true})
	require.NoError(t, err)

	for _, entity := range append(fleet(), device("d9", "device-9", "99"), device("d5", "DEVICE-5", " 26 ")) {
		native, err := f.evaluator.Matches(ctx, alice, keyFilters, entity)
		require.NoError(t, err)
		exported, err := f.compiler.Evaluate(ctx, program, entity)
		require.NoError(t, err)
		assert.Equal(t, native, exported, entity.EntityID.ID)
	}
}
