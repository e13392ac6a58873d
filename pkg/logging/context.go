package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	RequestIDKey   = "request_id"
	TenantIDKey    = "tenant_id"
	FilterIDKey    = "filter_id"
	ServiceNameKey = "service_name"
	MessageIDKey   = "message_id"
)

func withValue(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, contextKey(key), value)
}

func value(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withValue(ctx, TraceIDKey, traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, RequestIDKey, requestID)
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return withValue(ctx, TenantIDKey, tenantID)
}

func WithFilterID(ctx context.Context, filterID string) context.Context {
	return withValue(ctx, FilterIDKey, filterID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return withValue(ctx, ServiceNameKey, serviceName)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return withValue(ctx, MessageIDKey, messageID)
}

func GetTraceID(ctx context.Context) string { return value(ctx, TraceIDKey) }

func GetRequestID(ctx context.Context) string { return value(ctx, RequestIDKey) }

func GetTenantID(ctx context.Context) string { return value(ctx, TenantIDKey) }

func GetFilterID(ctx context.Context) string { return value(ctx, FilterIDKey) }

func GetServiceName(ctx context.Context) string { return value(ctx, ServiceNameKey) }

func GetMessageID(ctx context.Context) string { return value(ctx, MessageIDKey) }

// GetLogFields returns the key/value pairs carried by ctx in a fixed order.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 12)

	for _, key := range []string{TraceIDKey, RequestIDKey, TenantIDKey, FilterIDKey, ServiceNameKey, MessageIDKey} {
		if v := value(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
