package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	LevelCritical = slog.Level(12)
)

type Logger interface {
	Debug(message string, args ...any)
	Info(message string, args ...any)
	Warn(message string, args ...any)
	Error(message string, args ...any)
	Critical(message string, args ...any)
	BusinessError(message string, err error, args ...any)
	InternalError(message string, err error, args ...any)
	With(args ...any) Logger
}

// Options control the handler behind New. Zero values give info-level json.
type Options struct {
	Level     slog.Level
	Format    string
	AddSource bool
	Service   string
}

type slogLogger struct {
	base *slog.Logger
}

type contextKey struct{}

// NewFromEnv reads ENV, LOG_LEVEL, LOG_FORMAT, LOG_SOURCE and SERVICE_NAME.
// It runs before config loading, so it never sees values from .env.
func NewFromEnv() Logger {
	env := normalizeValue(os.Getenv("ENV"))
	addSource, _ := strconv.ParseBool(os.Getenv("LOG_SOURCE"))
	return NewWithOptions(os.Stdout, Options{
		Level:     parseLevel(os.Getenv("LOG_LEVEL"), env),
		Format:    parseFormat(os.Getenv("LOG_FORMAT")),
		AddSource: addSource,
		Service:   firstNonEmpty(os.Getenv("SERVICE_NAME"), "dondog"),
	})
}

func New(output io.Writer, level slog.Level, format string) Logger {
	return NewWithOptions(output, Options{Level: level, Format: format})
}

func NewWithOptions(output io.Writer, opts Options) Logger {
	handlerOptions := &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   opts.AddSource,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if normalizeValue(opts.Format) == "text" {
		handler = slog.NewTextHandler(output, handlerOptions)
	} else {
		handler = slog.NewJSONHandler(output, handlerOptions)
	}

	base := slog.New(handler)
	if opts.Service != "" {
		base = base.With("service", opts.Service)
	}
	return &slogLogger{base: base}
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() Logger {
	return &slogLogger{base: slog.New(slog.DiscardHandler)}
}

// WithContext stores log in ctx so request-scoped attributes follow the call chain.
func WithContext(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if log, ok := ctx.Value(contextKey{}).(Logger); ok && log != nil {
		return log
	}
	return fallback
}

func (l *slogLogger) Debug(message string, args ...any) {
	l.base.Debug(message, args...)
}

func (l *slogLogger) Info(message string, args ...any) {
	l.base.Info(message, args...)
}

func (l *slogLogger) Warn(message string, args ...any) {
	l.base.Warn(message, args...)
}

func (l *slogLogger) Error(message string, args ...any) {
	l.base.Error(message, args...)
}

func (l *slogLogger) Critical(message string, args ...any) {
	l.base.Log(context.Background(), LevelCritical, message, args...)
}

// BusinessError records an expected failure, such as a rejected invite code,
// at warn level.
func (l *slogLogger) BusinessError(message string, err error, args ...any) {
	l.logError(slog.LevelWarn, message, err, args)
}

// InternalError records a backend failure at error level.
func (l *slogLogger) InternalError(message string, err error, args ...any) {
	l.logError(slog.LevelError, message, err, args)
}

func (l *slogLogger) logError(level slog.Level, message string, err error, args []any) {
	if err == nil {
		return
	}
	l.base.Log(context.Background(), level, message, append([]any{"err", err.Error()}, args...)...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{base: l.base.With(args...)}
}

func parseLevel(value string, env string) slog.Level {
	switch normalizeValue(value) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical", "fatal":
		return LevelCritical
	}
	if env == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func parseFormat(value string) string {
	if normalizeValue(value) == "text" {
		return "text"
	}
	return "json"
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelCritical {
		attr.Value = slog.StringValue("CRITICAL")
	}
	return attr
}
