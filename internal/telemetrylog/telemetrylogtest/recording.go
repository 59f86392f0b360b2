// Package telemetrylogtest provides a recording telemetrylog.Logger for
// tests elsewhere in the module that need to assert on log output
// without linking zap.
package telemetrylogtest

import (
	"sync"

	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
)

// Entry is one captured log call.
type Entry struct {
	Level  string
	Msg    string
	Fields []telemetrylog.Field
}

// Recording implements telemetrylog.Logger and stores every call for
// later inspection. Safe for concurrent use since broker handlers log
// from multiple goroutines.
type Recording struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recording) record(level, msg string, fields []telemetrylog.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: fields})
}

func (r *Recording) Debug(msg string, fields ...telemetrylog.Field) { r.record("debug", msg, fields) }
func (r *Recording) Info(msg string, fields ...telemetrylog.Field)  { r.record("info", msg, fields) }
func (r *Recording) Warn(msg string, fields ...telemetrylog.Field)  { r.record("warn", msg, fields) }
func (r *Recording) Error(msg string, fields ...telemetrylog.Field) { r.record("error", msg, fields) }

// Entries returns a copy of every call recorded so far.
func (r *Recording) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// CountLevel returns how many entries were recorded at the given level.
func (r *Recording) CountLevel(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
