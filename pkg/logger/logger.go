package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// UsernameKey is the context key for the logged-in username
	UsernameKey ContextKey = "username"
	// DocumentKey is the context key for the document being worked on
	DocumentKey ContextKey = "document"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Init initializes the global slog logger with the given configuration
func Init(cfg *Config) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithDocument returns a copy of ctx tagged with the document name
func WithDocument(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, DocumentKey, name)
}

// WithContext returns a logger with context values extracted
func WithContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if ctx == nil {
		return logger
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if username, ok := ctx.Value(UsernameKey).(string); ok && username != "" {
		logger = logger.With("username", username)
	}
	if document, ok := ctx.Value(DocumentKey).(string); ok && document != "" {
		logger = logger.With("document", document)
	}

	return logger
}

// Info logs at info level with context
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// Debug logs at debug level with context
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

// Warn logs at warn level with context
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// Error logs at error level with context
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
