package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the severity level of log messages
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l LogLevel) String() string {
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

// Logger defines the interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// LoggingConfig contains configuration for logging
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Bytes creates a human readable byte size field
func Bytes(key string, value int64) Field {
	if value < 0 {
		return Field{Key: key, Value: value}
	}
	return Field{Key: key, Value: humanize.IBytes(uint64(value))}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error creates an error field
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// StructuredLogger implements the Logger interface with structured logging
type StructuredLogger struct {
	level        LogLevel
	format       string
	output       io.Writer
	fields       map[string]interface{}
	mu           sync.RWMutex
	writeMu      *sync.Mutex
	enableCaller bool
}

// NewStructuredLogger creates a new structured logger. An empty format picks
// "console" when the output is a terminal and "json" otherwise.
func NewStructuredLogger(config LoggingConfig) *StructuredLogger {
	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	format := strings.ToLower(config.Format)
	if format == "" {
		format = "json"
		if f, ok := output.(*os.File); ok && isTerminal(f.Fd()) {
			format = "console"
		}
	}

	return &StructuredLogger{
		level:        parseLogLevel(config.Level),
		format:       format,
		output:       output,
		fields:       make(map[string]interface{}),
		writeMu:      &sync.Mutex{},
		enableCaller: format == "json",
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewLoggerWithWriter creates a logger writing to w, mostly for tests
func NewLoggerWithWriter(w io.Writer, level, format string) *StructuredLogger {
	logger := NewStructuredLogger(LoggingConfig{Level: level, Format: format})
	logger.output = w
	return logger
}

// parseLogLevel converts string log level to LogLevel
func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string, fields ...Field) {
	if l.GetLevel() <= DebugLevel {
		l.log(DebugLevel, msg, fields...)
	}
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string, fields ...Field) {
	if l.GetLevel() <= InfoLevel {
		l.log(InfoLevel, msg, fields...)
	}
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string, fields ...Field) {
	if l.GetLevel() <= WarnLevel {
		l.log(WarnLevel, msg, fields...)
	}
}

// Error logs an error message
func (l *StructuredLogger) Error(msg string, fields ...Field) {
	if l.GetLevel() <= ErrorLevel {
		l.log(ErrorLevel, msg, fields...)
	}
}

// Fatal logs a fatal message and exits
func (l *StructuredLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

// With creates a new logger with additional fields
func (l *StructuredLogger) With(fields ...Field) Logger {
	l.mu.RLock()
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	level := l.level
	l.mu.RUnlock()

	for _, field := range fields {
		newFields[field.Key] = field.Value
	}

	return &StructuredLogger{
		level:        level,
		format:       l.format,
		output:       l.output,
		fields:       newFields,
		writeMu:      l.writeMu,
		enableCaller: l.enableCaller,
	}
}

// log performs the actual logging
func (l *StructuredLogger) log(level LogLevel, msg string, fields ...Field) {
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]interface{}),
	}

	l.mu.RLock()
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	l.mu.RUnlock()

	for _, field := range fields {
		entry.Fields[field.Key] = field.Value
	}

	if l.enableCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	var output string
	switch l.format {
	case "json":
		if data, err := json.Marshal(entry); err == nil {
			output = string(data) + "\n"
		} else {
			output = fmt.Sprintf("ERROR: Failed to marshal log entry: %v\n", err)
		}
	default:
		output = l.formatText(entry)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_, _ = l.output.Write([]byte(output))
}

// formatText formats log entry as human-readable text
func (l *StructuredLogger) formatText(entry LogEntry) string {
	var builder strings.Builder

	builder.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05.000"))
	builder.WriteString(" [")
	builder.WriteString(entry.Level)
	builder.WriteString("] ")
	builder.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		builder.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString(k)
			builder.WriteString("=")
			builder.WriteString(fmt.Sprintf("%v", entry.Fields[k]))
		}
		builder.WriteString("}")
	}

	if entry.Caller != "" {
		builder.WriteString(" (")
		builder.WriteString(entry.Caller)
		builder.WriteString(")")
	}

	builder.WriteString("\n")
	return builder.String()
}

// SetLevel sets the minimum log level
func (l *StructuredLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *StructuredLogger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// DefaultLogger creates a default logger for the pipeline
func DefaultLogger() Logger {
	return NewStructuredLogger(LoggingConfig{Level: "info"})
}

// NullLogger creates a logger that discards all output (useful for testing)
func NullLogger() Logger {
	return NewLoggerWithWriter(io.Discard, "fatal", "json")
}

// StdLogAdapter routes the standard log package (and discordgo, which logs
// through it) into a structured logger.
type StdLogAdapter struct {
	logger Logger
}

// NewStdLogAdapter creates a new adapter for the standard log package
func NewStdLogAdapter(logger Logger) *StdLogAdapter {
	return &StdLogAdapter{logger: logger}
}

// Write implements io.Writer to capture standard log output
func (a *StdLogAdapter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		a.logger.Info(msg)
	}
	return len(p), nil
}

// SetAsStdLogger sets this adapter as the output for the standard log package
func (a *StdLogAdapter) SetAsStdLogger() {
	log.SetOutput(a)
	log.SetFlags(0)
}
