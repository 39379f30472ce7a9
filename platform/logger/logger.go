// Package logger wraps log/slog with the handful of structured events the
// service emits. Field names are stable so dashboards can key on them.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

// RequestIDKey carries the HTTP correlation id into domain code.
const RequestIDKey contextKey = "request_id"

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New picks the handler by environment: text at debug level in development,
// discarded in test, JSON at info level otherwise.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "development":
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	case "test":
		handler = slog.NewTextHandler(io.Discard, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithContext tags the logger with the request id found in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		return l.WithRequestID(requestID)
	}
	return l
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.With(slog.String("request_id", requestID))}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// AuthEvent logs realtime session authentication outcomes.
func (l *Logger) AuthEvent(event, sessionID string, success bool, reason string) {
	attrs := []any{
		slog.String("event", event),
		slog.String("session_id", sessionID),
		slog.Bool("success", success),
	}
	if success {
		l.Info("auth_event", attrs...)
		return
	}
	l.Warn("auth_event", append(attrs, slog.String("reason", reason))...)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// TransitionRejected logs a status change refused by the transition table.
func (l *Logger) TransitionRejected(entityType, entityID, from, to string) {
	l.Warn("transition_rejected",
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// IdempotencyReplay logs a request answered from a recorded response.
func (l *Logger) IdempotencyReplay(key string, status int) {
	l.Info("idempotency_replay",
		slog.String("idempotency_key", key),
		slog.Int("status", status),
	)
}

// DeliveryFailed logs one recipient that missed a notification. Fan-out continues.
func (l *Logger) DeliveryFailed(channel, recipient, eventType string, err error) {
	l.Warn("delivery_failed",
		slog.String("channel", channel),
		slog.String("recipient", recipient),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
