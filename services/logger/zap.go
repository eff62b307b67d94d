package logsvc

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/erasmushub/erasmushub/core"
)

// NewZap builds a zap logger. format "json" selects the production encoder,
// anything else the human readable development one.
func NewZap(levelStr, format string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// NewZapFromConfig logs at debug level with the console encoder in debug mode,
// at info level as JSON otherwise.
func NewZapFromConfig(conf *core.Config) (*zap.Logger, error) {
	if conf.Debug {
		return NewZap("debug", "console")
	}
	return NewZap("info", "json")
}

// zapFields converts logger args to zap fields. An Identity becomes the requester field.
func zapFields(args []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch a := arg.(type) {
		case core.Identity:
			fields = append(fields, zap.String("requester", a.Email), zap.String("role", a.Role))
		case error:
			fields = append(fields, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
	}
	return fields
}

// zapLogger is a core.Logger without Rollbar reporting.
type zapLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*zapLogger)(nil)

// NewZapLogger adapts zl to core.Logger.
func NewZapLogger(zl *zap.Logger) core.Logger {
	return zapLogger{zl: zl}
}

func (l zapLogger) Debug(msg string, args ...interface{}) { l.zl.Debug(msg, zapFields(args)...) }
func (l zapLogger) Info(msg string, args ...interface{})  { l.zl.Info(msg, zapFields(args)...) }
func (l zapLogger) Warn(msg string, args ...interface{})  { l.zl.Warn(msg, zapFields(args)...) }
func (l zapLogger) Error(msg string, args ...interface{}) { l.zl.Error(msg, zapFields(args)...) }
func (l zapLogger) Fatal(msg string, args ...interface{}) { l.zl.Fatal(msg, zapFields(args)...) }

// NewNopLogger discards everything.
func NewNopLogger() core.Logger {
	return NewZapLogger(zap.NewNop())
}

// NewTestLogger writes to t's log.
func NewTestLogger(t testing.TB) core.Logger {
	return NewZapLogger(zaptest.NewLogger(t))
}
