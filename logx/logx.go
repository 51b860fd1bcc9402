// Package logx provides the logging API used across the routing packages.
//
// Routing code never depends on a concrete logging library; it talks to a
// Logger and the application decides which backend sits behind it
// (see the logxzap package for the zap one).
package logx

// Level represents the severity of a log message.
type Level int

const (
	// DebugLevel is used for per-statement and per-node diagnostics.
	DebugLevel Level = iota
	// InfoLevel is used for configuration and topology changes.
	InfoLevel
	// WarnLevel is used for recoverable anomalies, e.g. a node being quarantined.
	WarnLevel
	// ErrorLevel is used for problems that require attention.
	ErrorLevel
)

// String returns the lower-case name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	default:
		return "error"
	}
}

// Attr is a structured log field.
type Attr struct {
	Key   string
	Value any
}

// A creates an Attr from a key and value.
func A(k string, v any) Attr { return Attr{Key: k, Value: v} }

// Error attaches err under the "error" key.
func Error(err error) Attr { return Attr{Key: "error", Value: err} }

// Logger describes the structured, leveled logger the routing packages write to.
type Logger interface {
	Log(lvl Level, msg string, attrs ...Attr)

	Debug(msg string, attrs ...Attr)
	Info(msg string, attrs ...Attr)
	Warn(msg string, attrs ...Attr)
	Error(msg string, attrs ...Attr)

	// With returns a Logger that adds attrs to every message.
	With(attrs ...Attr) Logger
	// Named returns a Logger scoped under name.
	Named(name string) Logger

	// Enabled reports whether messages at lvl are written at all, so callers
	// can skip building expensive attributes.
	Enabled(lvl Level) bool
}

// Noop discards everything.
type Noop struct{}

// Log implements Logger.
func (Noop) Log(Level, string, ...Attr) {}

// Debug implements Logger.
func (Noop) Debug(string, ...Attr) {}

// Info implements Logger.
func (Noop) Info(string, ...Attr) {}

// Warn implements Logger.
func (Noop) Warn(string, ...Attr) {}

// Error implements Logger.
func (Noop) Error(string, ...Attr) {}

// With implements Logger.
func (n Noop) With(...Attr) Logger { return n }

// Named implements Logger.
func (n Noop) Named(string) Logger { return n }

// Enabled implements Logger, it is always false.
func (Noop) Enabled(Level) bool { return false }

var _ Logger = Noop{}
