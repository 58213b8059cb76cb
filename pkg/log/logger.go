package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a textual level ("debug", "info", "warn", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// Field is a single structured context value.
type Field struct {
	Key   string
	Value any
}

// Str creates a string Field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an int Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 creates an int64 Field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Bool creates a bool Field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Any creates a Field holding an arbitrary value.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Err creates an error Field under the conventional "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Component tags logs with a component name.
func Component(name string) Field { return Field{Key: "component", Value: name} }

// Logger is the logging interface used across the server.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a Logger carrying additional fields on every entry.
	With(fields ...Field) Logger

	// SetLevel sets the minimum log level.
	SetLevel(level Level)

	// GetLevel returns the current minimum log level.
	GetLevel() Level
}

// Formatter selects the handler used to render entries.
type Formatter interface {
	newHandler(w io.Writer, lvl slog.Leveler) slog.Handler
}

// TextFormatter renders entries as logfmt-style text.
type TextFormatter struct{}

func (TextFormatter) newHandler(w io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct{}

func (JSONFormatter) newHandler(w io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}

// NewConsoleOutput returns the default console output.
func NewConsoleOutput() io.Writer { return os.Stderr }

// LoggerOption configures a logger under construction.
type LoggerOption func(*BaseLogger)

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) { l.level.Set(toSlogLevel(level)) }
}

// WithFormatter sets the entry formatter.
func WithFormatter(f Formatter) LoggerOption {
	return func(l *BaseLogger) { l.formatter = f }
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *BaseLogger) { l.out = w }
}

// BaseLogger implements Logger on top of slog.
type BaseLogger struct {
	level     *slog.LevelVar
	formatter Formatter
	out       io.Writer
	sl        *slog.Logger

	mu sync.Mutex
}

// NewLogger creates a new logger with the given options. Defaults: info
// level, text format, console output.
func NewLogger(options ...LoggerOption) Logger {
	l := &BaseLogger{
		level:     new(slog.LevelVar),
		formatter: &TextFormatter{},
		out:       NewConsoleOutput(),
	}
	l.level.Set(slog.LevelInfo)
	for _, opt := range options {
		opt(l)
	}
	l.sl = slog.New(l.formatter.newHandler(l.out, l.level))
	return l
}

// Config declares a logger in configuration form.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// ApplyConfig builds a logger from a declarative Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	lvl := InfoLevel
	if cfg.Level != "" {
		parsed, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	var f Formatter = &TextFormatter{}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
	case "json":
		f = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return NewLogger(WithLevel(lvl), WithFormatter(f)), nil
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	l.sl.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFields(fields)...)
}

// Debug logs at debug level.
func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }

// Info logs at info level.
func (l *BaseLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields) }

// Warn logs at warn level.
func (l *BaseLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields) }

// Error logs at error level.
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at error level and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	osExit(1)
}

// osExit is swappable for tests.
var osExit = os.Exit

// With returns a Logger carrying additional fields on every entry.
func (l *BaseLogger) With(fields ...Field) Logger {
	child := &BaseLogger{
		level:     l.level,
		formatter: l.formatter,
		out:       l.out,
	}
	args := make([]any, 0, len(fields))
	for _, a := range attrsFromFields(fields) {
		args = append(args, a)
	}
	child.sl = l.sl.With(args...)
	return child
}

// SetLevel sets the minimum log level.
func (l *BaseLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level.Set(toSlogLevel(level))
}

// GetLevel returns the current minimum log level.
func (l *BaseLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fromSlogLevel(l.level.Level())
}
