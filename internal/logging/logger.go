// file: internal/logging/logger.go
// version: 1.0.0
// guid: 1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d

package logging

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the bracket tag used in log lines.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a level. Unknown
// values fall back to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes leveled lines through the standard logger.
type Logger struct {
	minLevel  LogLevel
	component string
}

// NewLogger creates a new logger instance
func NewLogger(minLevel LogLevel) *Logger {
	return &Logger{minLevel: minLevel}
}

// Default logs at info level and above.
func Default() *Logger {
	return NewLogger(InfoLevel)
}

// With returns a logger that prefixes messages with component.
func (l *Logger) With(component string) *Logger {
	return &Logger{minLevel: l.level(), component: component}
}

func (l *Logger) level() LogLevel {
	if l == nil {
		return InfoLevel
	}
	return l.minLevel
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	if level < l.level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l != nil && l.component != "" {
		msg = l.component + ": " + msg
	}
	log.Printf("[%s] %s", level, msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(DebugLevel, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(InfoLevel, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(WarnLevel, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(ErrorLevel, format, args...) }

// Timer logs the duration of a unit of work when stopped.
type Timer struct {
	logger *Logger
	name   string
	start  time.Time
}

// Start begins timing name.
func (l *Logger) Start(name string) *Timer {
	l.Debugf("[START] %s", name)
	return &Timer{logger: l, name: name, start: time.Now()}
}

// Stop logs the elapsed time and returns it. A non-nil err is logged at
// error level instead.
func (t *Timer) Stop(err error) time.Duration {
	elapsed := time.Since(t.start)
	if err != nil {
		t.logger.Errorf("[FAILED] %s in %v: %v", t.name, elapsed, err)
	} else {
		t.logger.Infof("[DONE] %s in %v", t.name, elapsed)
	}
	return elapsed
}
