// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID ties together log lines emitted by one background run or
// one fan-out chain.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

func fieldAttrs(ctx context.Context, base []any, fields map[string]any) []any {
	base = append(base, slog.String("correlation_id", ExtractCorrelationID(ctx)))
	for k, v := range fields {
		base = append(base, slog.Any(k, v))
	}
	return base
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]any) {
	slog.InfoContext(ctx, "async operation started",
		fieldAttrs(ctx, []any{slog.String("operation", operation)}, fields)...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]any) {
	slog.InfoContext(ctx, "async operation completed",
		fieldAttrs(ctx, []any{slog.String("operation", operation)}, fields)...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]any) {
	slog.ErrorContext(ctx, "async operation failed",
		fieldAttrs(ctx, []any{slog.String("operation", operation), slog.String("error", err.Error())}, fields)...)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint, clientID string) {
	slog.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("client_id", clientID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, clientID string) {
	slog.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("client_id", clientID),
	)
}

// LogSubscription logs a topic subscription change.
func (l *WSLogger) LogSubscription(ctx context.Context, userID uint, topic, action string) {
	slog.DebugContext(ctx, "websocket subscription",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("topic", topic),
		slog.String("action", action),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, eventType string) {
	slog.WarnContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
