// Package logging provides the structured JSON logger used by every
// chimehook binary. Outcomes are returned to callers for control flow
// and logged here for operability; the two are never conflated.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/chimehook/chimehook/internal/tracing"
)

// LogLevel represents the severity of the log entry.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// LogEntry is one structured record. The correlation fields mirror the
// alert domain: which workflow entity, which run, which connection.
type LogEntry struct {
	Time         time.Time      `json:"time"`
	Level        LogLevel       `json:"level"`
	Message      string         `json:"msg"`
	Service      string         `json:"service,omitempty"`
	TraceID      string         `json:"trace_id,omitempty"`
	EntityID     string         `json:"entity_id,omitempty"`
	RunID        string         `json:"run_id,omitempty"`
	ConnectionID string         `json:"connection_id,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`

	logger *Logger
}

// Logger emits structured entries for one service.
type Logger struct {
	service string

	mu  sync.Mutex
	out io.Writer
}

// New creates a logger writing JSON lines to stdout.
func New(service string) *Logger {
	return &Logger{service: service, out: os.Stdout}
}

// SetOutput redirects the logger, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// Plain creates a basic entry without context.
func (l *Logger) Plain() *LogEntry {
	return &LogEntry{Time: time.Now().UTC(), Service: l.service, logger: l}
}

// WithContext creates an entry correlated with the active trace.
func (l *Logger) WithContext(ctx context.Context) *LogEntry {
	e := l.Plain()
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		e.TraceID = traceID
	}
	return e
}

// WithAlert creates an entry carrying the alert's correlation fields.
func (l *Logger) WithAlert(ctx context.Context, entityID, runID, connectionID string) *LogEntry {
	e := l.WithContext(ctx)
	e.EntityID = entityID
	e.RunID = runID
	e.ConnectionID = connectionID
	return e
}

// WithEntity sets the workflow entity identifier.
func (e *LogEntry) WithEntity(entityID string) *LogEntry {
	e.EntityID = entityID
	return e
}

// WithRun sets the run identifier.
func (e *LogEntry) WithRun(runID string) *LogEntry {
	e.RunID = runID
	return e
}

// WithConnection sets the connection reference.
func (e *LogEntry) WithConnection(connID string) *LogEntry {
	e.ConnectionID = connID
	return e
}

// WithField adds a single key-value pair.
func (e *LogEntry) WithField(key string, value any) *LogEntry {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// WithFields adds multiple key-value pairs.
func (e *LogEntry) WithFields(fields map[string]any) *LogEntry {
	for k, v := range fields {
		e.WithField(k, v)
	}
	return e
}

// WithError adds an error field when err is non-nil.
func (e *LogEntry) WithError(err error) *LogEntry {
	if err != nil {
		e.WithField("error", err.Error())
	}
	return e
}

func (e *LogEntry) Debug(message string) { e.emit(LevelDebug, message) }

func (e *LogEntry) Info(message string) { e.emit(LevelInfo, message) }

func (e *LogEntry) Infof(format string, args ...any) {
	e.emit(LevelInfo, fmt.Sprintf(format, args...))
}

func (e *LogEntry) Warn(message string) { e.emit(LevelWarn, message) }

func (e *LogEntry) Error(message string) { e.emit(LevelError, message) }

func (e *LogEntry) Errorf(format string, args ...any) {
	e.emit(LevelError, fmt.Sprintf(format, args...))
}

// Fatal logs the entry and exits.
func (e *LogEntry) Fatal(message string) {
	e.emit(LevelFatal, message)
	os.Exit(1)
}

func (e *LogEntry) emit(level LogLevel, message string) {
	e.Level = level
	e.Message = message

	out := io.Writer(os.Stdout)
	if e.logger != nil {
		e.logger.mu.Lock()
		out = e.logger.out
		defer e.logger.mu.Unlock()
	}

	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		fmt.Fprintf(out, "%s [%s] %s\n", e.Time.Format(time.RFC3339), e.Level, e.Message)
		return
	}
	fmt.Fprintln(out, string(data))
}
