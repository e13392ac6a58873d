package filters

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityquery/internal/auth"
	"entityquery/internal/config"
	"entityquery/internal/logger"
	"entityquery/pkg/query"
)

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1", auth.Middleware(config.AuthConfig{}, logger.NopLogger()))
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(api)
	return router
}

func doRequest(router *gin.Engine, method, path, body, tenant string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(auth.HeaderTenantID, tenant)
		req.Header.Set(auth.HeaderUserID, "alice")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CRUD(t *testing.T) {
	producer := &recordingProducer{}
	router := newTestRouter(newTestService(newMemoryRepository(), producer))

	w := doRequest(router, http.MethodPost, "/api/v1/filters", overheatingJSON, "tenant-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created SavedFilter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "overheating", created.Filter)
	assert.Equal(t, "tenant-1", created.TenantID)

	w = doRequest(router, http.MethodGet, "/api/v1/filters/"+created.ID, "", "tenant-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sourceAttribute":"maxTemperature"`)

	w = doRequest(router, http.MethodGet, "/api/v1/filters/"+created.ID, "", "tenant-2")
	assert.Equal(t, http.StatusNotFound, w.Code)

	renamed := strings.Replace(overheatingJSON, `"overheating"`, `"hot"`, 1)
	w = doRequest(router, http.MethodPut, "/api/v1/filters/"+created.ID, renamed, "tenant-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"filter":"hot"`)

	w = doRequest(router, http.MethodGet, "/api/v1/filters", "", "tenant-1")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []SavedFilter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	w = doRequest(router, http.MethodDelete, "/api/v1/filters/"+created.ID, "", "tenant-1")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/v1/filters/"+created.ID, "", "tenant-1")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Len(t, producer.messages, 3)
}

func TestHandler_Errors(t *testing.T) {
	router := newTestRouter(newTestService(newMemoryRepository(), &recordingProducer{}))

	tests := []struct {
		name   string
		body   string
		tenant string
		status int
		code   string
	}{
		{"no principal", overheatingJSON, "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed json", `{"filter":`, "tenant-1", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown operation", strings.Replace(overheatingJSON, `"GREATER"`, `"ABOUT"`, 1), "tenant-1", http.StatusBadRequest, "CONFIGURATION_ERROR"},
		{"value type mismatch", strings.Replace(overheatingJSON, `"valueType": "NUMERIC"`, `"valueType": "BOOLEAN"`, 1), "tenant-1", http.StatusBadRequest, "CONFIGURATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/filters", tt.body, tt.tenant)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error_code"])
		})
	}
}

func TestHandler_Validate(t *testing.T) {
	router := newTestRouter(newTestService(newMemoryRepository(), &recordingProducer{}))

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"valid", overheatingJSON, true},
		{"unknown operation", strings.Replace(overheatingJSON, `"GREATER"`, `"ABOUT"`, 1), false},
		{"blank name", strings.Replace(overheatingJSON, `"overheating"`, `""`, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/filters/validate", tt.body, "tenant-1")
			require.Equal(t, http.StatusOK, w.Code)

			var resp ValidateFilterResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.valid, resp.Valid)
			if !tt.valid {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}

	w := doRequest(router, http.MethodPost, "/api/v1/filters/validate", `[`, "tenant-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ValidateReturnsPredicateLabels(t *testing.T) {
	router := newTestRouter(newTestService(newMemoryRepository(), &recordingProducer{}))

	w := doRequest(router, http.MethodPost, "/api/v1/filters/validate", overheatingJSON, "tenant-1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ValidateFilterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Valid)
	assert.Equal(t, []PredicateLabel{
		{Key: "temperature", Operation: "filter.operation.greater", DynamicSource: "filter.current-tenant"},
	}, resp.Labels)
}

func TestDescribePredicates(t *testing.T) {
	labels := query.DefaultOperationLabels()
	customer := &query.DynamicValue{SourceType: query.DynamicValueSourceCurrentCustomer, SourceAttribute: "prefix"}

	tests := []struct {
		name string
		info query.FilterInfo
		want []PredicateLabel
	}{
		{
			name: "no key filters",
			info: query.FilterInfo{Filter: "empty"},
		},
		{
			name: "nested complex leaves in order",
			info: query.FilterInfo{KeyFilters: []query.KeyFilterInfo{{
				Key:       query.EntityKey{Type: query.EntityKeyTypeEntityField, Key: "name"},
				ValueType: query.EntityKeyValueTypeString,
				Predicates: []query.KeyFilterPredicateInfo{{
					KeyFilterPredicate: query.ComplexFilterPredicateInfo{
						Operation: query.ComplexOperationOr,
						Predicates: []query.KeyFilterPredicateInfo{
							{KeyFilterPredicate: query.StringFilterPredicate{
								Operation: query.StringOperationStartsWith,
								Value:     query.FilterPredicateValue[string]{DynamicValue: customer},
							}},
							{KeyFilterPredicate: query.StringFilterPredicate{Operation: query.StringOperationEndsWith}},
						},
					},
				}},
			}, {
				Key:       query.EntityKey{Type: query.EntityKeyTypeAttribute, Key: "active"},
				ValueType: query.EntityKeyValueTypeBoolean,
				Predicates: []query.KeyFilterPredicateInfo{{
					KeyFilterPredicate: query.BooleanFilterPredicate{Operation: query.BooleanOperationEqual},
				}},
			}}},
			want: []PredicateLabel{
				{Key: "name", Operation: "filter.operation.starts-with", DynamicSource: "filter.current-customer"},
				{Key: "name", Operation: "filter.operation.ends-with"},
				{Key: "active", Operation: "EQUAL"},
			},
		},
		{
			name: "unknown operation falls back to its name",
			info: query.FilterInfo{KeyFilters: []query.KeyFilterInfo{{
				Key: query.EntityKey{Type: query.EntityKeyTypeTimeSeries, Key: "temperature"},
				Predicates: []query.KeyFilterPredicateInfo{{
					KeyFilterPredicate: query.NumericFilterPredicate{Operation: query.NumericOperation("ABOUT")},
				}},
			}}},
			want: []PredicateLabel{{Key: "temperature", Operation: "ABOUT"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describePredicates(tt.info, labels))
		})
	}
}

func TestHandler_Labels(t *testing.T) {
	router := newTestRouter(newTestService(newMemoryRepository(), &recordingProducer{}))

	w := doRequest(router, http.MethodGet, "/api/v1/filters/labels", "", "tenant-1")
	require.Equal(t, http.StatusOK, w.Code)

	var labels map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &labels))
	assert.Equal(t, "filter.operation.contains", labels["stringOperations"]["CONTAINS"])
	assert.Contains(t, labels, "numericOperations")
}
