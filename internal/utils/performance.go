// Package utils holds small helpers shared by the server and the CLI.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperation is the duration above which timed operations log a warning
const SlowOperation = 30 * time.Second

// Timer measures one operation and logs its duration when stopped
type Timer struct {
	start time.Time
	name  string
	slow  time.Duration
	log   zerolog.Logger
}

// NewTimer starts a timer. slow <= 0 uses SlowOperation.
func NewTimer(name string, slow time.Duration, log zerolog.Logger) *Timer {
	if slow <= 0 {
		slow = SlowOperation
	}
	return &Timer{
		start: time.Now(),
		name:  name,
		slow:  slow,
		log:   log,
	}
}

// Stop logs the elapsed time with the given fields and returns it
func (t *Timer) Stop(fields map[string]interface{}) time.Duration {
	duration := time.Since(t.start)

	event := t.log.Debug()
	if duration > t.slow {
		event = t.log.Warn().Dur("threshold", t.slow)
	}

	event.
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Fields(fields).
		Msg("Operation completed")

	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func Backup() {
//	    defer utils.OperationTimer("backup", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, SlowOperation, log)
	return func() {
		t.Stop(nil)
	}
}
