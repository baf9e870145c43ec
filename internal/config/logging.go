package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// DefaultTraceLines is how many lines the debug panel keeps.
const DefaultTraceLines = 200

// logTimeFormat is the timestamp layout of every log and trace line.
const logTimeFormat = "2006-01-02 15:04:05.000"

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// charmLevel maps a LogLevel onto the backend's level scale.
func (l LogLevel) charmLevel() log.Level {
	if l == LogLevelDebug {
		return log.DebugLevel
	}
	return log.ErrorLevel
}

// Logger writes timestamped log lines to a file and keeps the most recent
// lines in memory for the debug panel.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	file     *os.File
	filePath string
	backend  *log.Logger
	trace    *TraceBuffer
}

// NewLogger creates a new logger. An empty filePath keeps lines in memory only.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	logger := &Logger{
		level:    level,
		filePath: filePath,
		trace:    NewTraceBuffer(DefaultTraceLines),
	}

	var sink io.Writer = logger.trace

	if level != LogLevelOff && filePath != "" {
		filePath = ExpandHome(filePath)

		if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
			return nil, err
		}

		// #nosec G304 -- log file path is from validated config
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}

		logger.file = f
		logger.filePath = filePath
		sink = io.MultiWriter(f, logger.trace)
	}

	logger.backend = log.NewWithOptions(sink, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level.charmLevel(),
	})

	return logger, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	if l.backend != nil {
		l.backend.SetLevel(level.charmLevel())
	}
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Trace returns the lines currently held by the debug panel, oldest first.
func (l *Logger) Trace() []string {
	if l.trace == nil {
		return nil
	}
	return l.trace.Lines()
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level || l.backend == nil {
		return
	}

	if level == LogLevelDebug {
		l.backend.Debugf(format, args...)
		return
	}
	l.backend.Errorf(format, args...)
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff}
}

// TraceBuffer is a bounded, line-oriented in-memory sink.
type TraceBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial bytes.Buffer
}

// NewTraceBuffer creates a buffer that keeps at most maxLines lines.
func NewTraceBuffer(maxLines int) *TraceBuffer {
	if maxLines <= 0 {
		maxLines = DefaultTraceLines
	}
	return &TraceBuffer{max: maxLines}
}

// Write splits p into lines and appends them, evicting the oldest lines.
func (t *TraceBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial.Write(p)
	for {
		line, err := t.partial.ReadString('\n')
		if err != nil {
			// Incomplete line: keep it for the next write.
			t.partial.Reset()
			t.partial.WriteString(line)
			break
		}
		t.lines = append(t.lines, strings.TrimRight(line, "\r\n"))
		if len(t.lines) > t.max {
			t.lines = t.lines[len(t.lines)-t.max:]
		}
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines.
func (t *TraceBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
