package testutil

import "sync"

// RecordingLogger captures log messages for assertions.
type RecordingLogger struct {
	mu       sync.Mutex
	messages map[string][]string
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{messages: make(map[string][]string)}
}

func (l *RecordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages[level] = append(l.messages[level], msg)
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("debug", msg) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("info", msg) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("error", msg) }

// Warnings returns every message logged at warn level.
func (l *RecordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages["warn"]...)
}
