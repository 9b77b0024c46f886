// Package logger provides logging implementations for PromptFit
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/gitai-reporter/promptfit/pkg/interfaces"
)

// level ordering for filtering
var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// ConsoleLogger writes leveled, fielded log lines to a writer
type ConsoleLogger struct {
	level  string
	out    *log.Logger
	fields map[string]interface{}
}

// NewConsoleLogger creates a new console logger at the given level
func NewConsoleLogger(level string) interfaces.Logger {
	return newConsoleLogger(level, os.Stderr)
}

// NewWriterLogger creates a logger writing to an arbitrary writer
func NewWriterLogger(level string, w io.Writer) interfaces.Logger {
	return newConsoleLogger(level, w)
}

// NewTestLogger creates a logger for testing
func NewTestLogger() interfaces.Logger {
	return newConsoleLogger("debug", os.Stderr)
}

// NewLogger creates a new logger with default settings
func NewLogger() interfaces.Logger {
	return newConsoleLogger("info", os.Stderr)
}

func newConsoleLogger(level string, w io.Writer) *ConsoleLogger {
	if _, ok := levelRank[level]; !ok {
		level = "info"
	}
	return &ConsoleLogger{
		level: level,
		out:   log.New(w, "", log.LstdFlags),
	}
}

// Debug logs debug level messages
func (l *ConsoleLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.write("debug", "DEBUG", msg, nil, fields...)
}

// Info logs info level messages
func (l *ConsoleLogger) Info(msg string, fields ...map[string]interface{}) {
	l.write("info", "INFO", msg, nil, fields...)
}

// Warn logs warning level messages
func (l *ConsoleLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.write("warn", "WARN", msg, nil, fields...)
}

// Error logs error level messages
func (l *ConsoleLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	l.write("error", "ERROR", msg, err, fields...)
}

// Fatal logs fatal level messages and exits
func (l *ConsoleLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.write("error", "FATAL", msg, err, fields...)
	os.Exit(1)
}

// WithFields returns a logger carrying additional fields on every line
func (l *ConsoleLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ConsoleLogger{
		level:  l.level,
		out:    l.out,
		fields: merged,
	}
}

func (l *ConsoleLogger) write(level, tag, msg string, err error, fields ...map[string]interface{}) {
	if levelRank[level] < levelRank[l.level] {
		return
	}

	line := fmt.Sprintf("[%s] %s", tag, msg)
	if err != nil {
		line += fmt.Sprintf(" error=%v", err)
	}
	line += formatFields(l.fields)
	for _, fieldMap := range fields {
		line += formatFields(fieldMap)
	}
	l.out.Println(line)
}

// formatFields renders fields in key order so output is deterministic
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	return out
}
