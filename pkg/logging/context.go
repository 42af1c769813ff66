package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	RequestIDKey   = "request_id"
	EventIDKey     = "event_id"
	OwnerIDKey     = "owner_id"
	CompanyIDKey   = "company_id"
	ServiceNameKey = "service_name"
)

var orderedKeys = []string{TraceIDKey, RequestIDKey, EventIDKey, OwnerIDKey, CompanyIDKey, ServiceNameKey}

func with(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, contextKey(key), value)
}

func get(ctx context.Context, key string) string {
	if value, ok := ctx.Value(contextKey(key)).(string); ok {
		return value
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, RequestIDKey, requestID)
}

func WithEventID(ctx context.Context, eventID string) context.Context {
	return with(ctx, EventIDKey, eventID)
}

// WithScope records the caller's owner and company on the context.
func WithScope(ctx context.Context, ownerID, companyID string) context.Context {
	return with(with(ctx, OwnerIDKey, ownerID), CompanyIDKey, companyID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

func GetEventID(ctx context.Context) string {
	return get(ctx, EventIDKey)
}

func GetServiceName(ctx context.Context) string {
	return get(ctx, ServiceNameKey)
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, len(orderedKeys)*2)
	for _, key := range orderedKeys {
		if value := get(ctx, key); value != "" {
			fields = append(fields, key, value)
		}
	}
	return fields
}
