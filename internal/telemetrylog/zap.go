// zap.go — zap-backed Logger implementation. Config shape (production
// encoder, ISO8601 timestamps, level threshold from a string) mirrors
// the initLogger helper used across the OmniRoute services.
package telemetrylog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	base *zap.Logger
}

// NewZap builds a Logger backed by zap's production encoder. level is
// one of "debug", "info", "warn", "error"; anything else defaults to
// info.
func NewZap(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{base: base}, nil
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.base.Debug(msg, toZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.base.Info(msg, toZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.base.Warn(msg, toZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.base.Error(msg, toZapFields(fields)...) }

// Sync flushes any buffered log entries. Call before process exit.
func Sync(l Logger) error {
	if zl, ok := l.(*zapLogger); ok {
		return zl.base.Sync()
	}
	return nil
}
