package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	runIDKey     ctxKey = "runID"
)

// Init installs the default slog logger according to the config
func Init(cfg Config) {
	opts := &slog.HandlerOptions{
		Level:     cfg.LogLevel(),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.IsJSON() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	handler = handler.WithAttrs(cfg.BaseAttributes())
	slog.SetDefault(slog.New(handler))
}

// GenerateRequestID creates a new UUID for tracing requests.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a new context containing the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from the context, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey)
	if v == nil {
		return "", false
	}
	if id, ok := v.(string); ok {
		return id, true
	}
	return "", false
}

// WithRunID returns a new context carrying a synchronization run ID, so
// every log line of one run is correlatable.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run ID from the context, if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(runIDKey)
	if v == nil {
		return "", false
	}
	if id, ok := v.(string); ok {
		return id, true
	}
	return "", false
}

// FromContext returns a logger that includes the request_id and run_id
// attributes when present.
func FromContext(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if id, ok := RequestIDFromContext(ctx); ok {
		log = log.With(AttrKeyRequestID, id)
	}
	if id, ok := RunIDFromContext(ctx); ok {
		log = log.With(AttrKeyRunID, id)
	}
	return log
}
