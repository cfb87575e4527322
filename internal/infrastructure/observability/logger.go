package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "calendar-engine"

// InitLogger initializes the global zerolog logger. Development gets a
// human-readable console writer at debug level; everything else emits
// structured JSON at info level.
func InitLogger(serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Millisecond

	if serviceName == "" {
		serviceName = defaultServiceName
	}

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).Level(zerolog.DebugLevel).
			With().
			Str("service", serviceName).
			Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Str("env", env).
			Logger()
	}
}

// LoggerFromContext returns a logger with trace context
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

// CalendarLogger returns a context logger scoped to one managed calendar.
// Most engine log lines key on the calendar id, so the field is attached
// once here instead of at every call site.
func CalendarLogger(ctx context.Context, calendarID string) *zerolog.Logger {
	logger := LoggerFromContext(ctx).With().
		Str("calendar_id", calendarID).
		Logger()
	return &logger
}

// GetLogger returns the global logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}
