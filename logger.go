package raffle

import (
	"fmt"
	"log"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// DefaultLogger implements Logger using standard log package
type DefaultLogger struct{}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, args ...any) {
	log.Printf("[INFO] "+msg, args...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, args ...any) {
	log.Printf("[ERROR] "+msg, args...)
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, args ...any) {
	log.Printf("[DEBUG] "+msg, args...)
}

// SilentLogger implements Logger interface but does not output any logs
// This is useful for testing environments where log output is not desired
type SilentLogger struct{}

// NewSilentLogger creates a new silent logger instance
func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (l *SilentLogger) Info(msg string, args ...any)  {}
func (l *SilentLogger) Error(msg string, args ...any) {}
func (l *SilentLogger) Debug(msg string, args ...any) {}

// LogrusLogger adapts a logrus entry to Logger, keeping its fields on every line
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps a logrus logger. A nil logger uses logrus.StandardLogger().
func NewLogrusLogger(logger *logrus.Logger) *LogrusLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

// WithFields returns a logger that adds fields to every message
func (l *LogrusLogger) WithFields(fields map[string]any) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// Info logs an info message
func (l *LogrusLogger) Info(msg string, args ...any) { l.entry.Info(fmt.Sprintf(msg, args...)) }

// Error logs an error message
func (l *LogrusLogger) Error(msg string, args ...any) { l.entry.Error(fmt.Sprintf(msg, args...)) }

// Debug logs a debug message
func (l *LogrusLogger) Debug(msg string, args ...any) { l.entry.Debug(fmt.Sprintf(msg, args...)) }
