// Package logger is the structured logger used by the HTTP layer.
// It writes one flat JSON object per line: timestamp, level, message
// and the accumulated fields all at the top level, which keeps request
// logs grep- and jq-friendly.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// String returns the lowercase level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds an arbitrary field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field   { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }

// Err builds the conventional "error" field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration renders a duration as its string form rather than
// nanoseconds, which is what a human reading the log wants.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Field helpers for the identifiers that recur across request logs.
func LearnerID(id string) Field   { return String("learner_id", id) }
func EventID(id string) Field     { return String("event_id", id) }
func RequestID(id string) Field   { return String("request_id", id) }
func Component(name string) Field { return String("component", name) }

// Options configures a Logger.
type Options struct {
	// Output receives the JSON lines. Defaults to os.Stdout.
	Output io.Writer

	// Level is the minimum severity that gets written.
	Level Level
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Output: os.Stdout,
		Level:  LevelInfo,
	}
}

// Logger writes structured JSON log lines. Safe for concurrent use;
// With creates derived loggers that share the output and its mutex.
type Logger struct {
	out   *syncWriter
	level Level
	base  []Field
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) writeLine(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(line)
	_, _ = s.w.Write([]byte{'\n'})
}

// New creates a Logger.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		out:   &syncWriter{w: opts.Output},
		level: opts.Level,
	}
}

// Default creates a Logger with DefaultOptions.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a derived Logger whose lines always carry the given
// fields in addition to per-call ones.
func (l *Logger) With(fields ...Field) *Logger {
	base := make([]Field, 0, len(l.base)+len(fields))
	base = append(base, l.base...)
	base = append(base, fields...)
	return &Logger{
		out:   l.out,
		level: l.level,
		base:  base,
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

func (l *Logger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	record := make(map[string]any, len(l.base)+len(fields)+3)
	for _, f := range l.base {
		record[f.Key] = f.Value
	}
	for _, f := range fields {
		record[f.Key] = f.Value
	}
	// Reserved keys win over field collisions.
	record["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	record["level"] = level.String()
	record["msg"] = msg

	line, err := json.Marshal(record)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"msg":%q,"logger_error":%q}`,
			level.String(), msg, err.Error()))
	}
	l.out.writeLine(line)
}
