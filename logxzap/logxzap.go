// Package logxzap implements logx.Logger on top of go.uber.org/zap.
//
//	logger := logxzap.DefaultLogger()
//	policy := routing.NewDefaultPolicy(routing.WithLogger(logger))
package logxzap

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scylladb/scylla-client-golang/routing/logx"
)

// Logger adapts a *zap.Logger to logx.Logger.
type Logger struct {
	z *zap.Logger
}

// New wraps z.
func New(z *zap.Logger) *Logger { return &Logger{z: z} }

// Zap returns the wrapped zap logger.
func (l *Logger) Zap() *zap.Logger { return l.z }

// Log writes msg at lvl. Attributes are only converted when the level is enabled.
func (l *Logger) Log(lvl logx.Level, msg string, attrs ...logx.Attr) {
	if ce := l.z.Check(toZapLevel(lvl), msg); ce != nil {
		ce.Write(toZapFields(attrs)...)
	}
}

// Debug implements logx.Logger.
func (l *Logger) Debug(msg string, attrs ...logx.Attr) { l.Log(logx.DebugLevel, msg, attrs...) }

// Info implements logx.Logger.
func (l *Logger) Info(msg string, attrs ...logx.Attr) { l.Log(logx.InfoLevel, msg, attrs...) }

// Warn implements logx.Logger.
func (l *Logger) Warn(msg string, attrs ...logx.Attr) { l.Log(logx.WarnLevel, msg, attrs...) }

// Error implements logx.Logger.
func (l *Logger) Error(msg string, attrs ...logx.Attr) { l.Log(logx.ErrorLevel, msg, attrs...) }

// With implements logx.Logger.
func (l *Logger) With(attrs ...logx.Attr) logx.Logger {
	return &Logger{z: l.z.With(toZapFields(attrs)...)}
}

// Named implements logx.Logger.
func (l *Logger) Named(name string) logx.Logger {
	return &Logger{z: l.z.Named(name)}
}

// Enabled implements logx.Logger.
func (l *Logger) Enabled(lvl logx.Level) bool {
	return l.z.Core().Enabled(toZapLevel(lvl))
}

func toZapLevel(l logx.Level) zapcore.Level {
	switch l {
	case logx.DebugLevel:
		return zapcore.DebugLevel
	case logx.InfoLevel:
		return zapcore.InfoLevel
	case logx.WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func toZapFields(attrs []logx.Attr) []zap.Field {
	if len(attrs) == 0 {
		return nil
	}
	fs := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		if err, ok := a.Value.(error); ok {
			fs = append(fs, zap.NamedError(a.Key, err))
			continue
		}
		fs = append(fs, zap.Any(a.Key, a.Value))
	}
	return fs
}

// NewConsole builds a console logger writing to w at lvl and above.
func NewConsole(lvl logx.Level, w zapcore.WriteSyncer) *Logger {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), w, toZapLevel(lvl))
	return New(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// DefaultLogger is a console logger on stdout at Info level.
func DefaultLogger() logx.Logger {
	return NewConsole(logx.InfoLevel, zapcore.AddSync(os.Stdout))
}
