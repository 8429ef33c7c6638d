package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options for New. Empty fields are omitted from the base fields.
type Options struct {
	Level   string // debug | info | warn | error, default info
	Format  string // json | console, default json
	Service string // service_name
	Env     string // env, e.g. production / staging / development
}

// New builds the process logger. JSON goes to stdout with ISO8601 timestamps
// for the container log collector; console is the development encoder.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)

	var config zap.Config
	if opts.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(level)

	l, err := config.Build()
	if err != nil {
		return nil, err
	}
	return l.With(baseFields(opts)...), nil
}

// NewLogger shorthand for New without an env.
func NewLogger(level, format, serviceName string) (*zap.Logger, error) {
	return New(Options{Level: level, Format: format, Service: serviceName})
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil || lvl < zapcore.DebugLevel || lvl > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return lvl
}

func baseFields(opts Options) []zap.Field {
	var fields []zap.Field
	if opts.Service != "" {
		fields = append(fields, zap.String("service_name", opts.Service))
	}
	if opts.Env != "" {
		fields = append(fields, zap.String("env", opts.Env))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		fields = append(fields, zap.String("hostname", hostname))
	}
	return fields
}

// Request child logger for one authenticated API call.
func Request(l *zap.Logger, method, path, actorID, actorName string) *zap.Logger {
	return l.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("actor_id", actorID),
		zap.String("actor", actorName),
	)
}

type ctxKey struct{}

// WithContext stores l for FromContext.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or fallback when none was attached.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}
