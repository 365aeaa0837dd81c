package logger

import (
	"sync"
)

// Log levels accepted from configs/config.yml.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes the level;
// subsequent calls ignore their argument and return the same instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}
