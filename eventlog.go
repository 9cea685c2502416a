package intersection

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLogCapacity is the number of entries kept when none is configured
const DefaultLogCapacity = 50

// EntryKind classifies log entries
type EntryKind string

const (
	KindTransition EntryKind = "transition"
	KindEmergency  EntryKind = "emergency"
	KindRequest    EntryKind = "request"
	KindRejected   EntryKind = "rejected"
	KindControl    EntryKind = "control"
	KindConfig     EntryKind = "config"
	KindComplete   EntryKind = "complete"
	KindWarning    EntryKind = "warning"
)

// LogEntry is one timestamped line of the event log
type LogEntry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Kind    EntryKind `json:"kind"`
	Phase   Phase     `json:"phase"`
	Input   Input     `json:"input"`
	Message string    `json:"message"`
}

// NewLogEntry creates an entry with a fresh ID
func NewLogEntry(at time.Time, kind EntryKind, phase Phase, input Input, message string) LogEntry {
	return LogEntry{
		ID:      uuid.New().String(),
		Time:    at,
		Kind:    kind,
		Phase:   phase,
		Input:   input,
		Message: message,
	}
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.UTC().Format("15:04:05"), e.Message)
}

// EventLog is a bounded, most-recent-first log. It is not safe for
// concurrent use; the engine guards it.
type EventLog struct {
	capacity int
	entries  []LogEntry
}

// NewEventLog creates a log holding at most capacity entries
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &EventLog{
		capacity: capacity,
		entries:  make([]LogEntry, 0, capacity),
	}
}

// Append adds entry at the front, evicting the oldest on overflow
func (l *EventLog) Append(entry LogEntry) {
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, LogEntry{})
	}
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
}

// Entries returns a copy, most recent first
func (l *EventLog) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries held
func (l *EventLog) Len() int {
	return len(l.entries)
}

// Capacity returns the maximum number of entries held
func (l *EventLog) Capacity() int {
	return l.capacity
}

// MarshalJSON encodes the entries, most recent first
func (l *EventLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.entries)
}

// UnmarshalJSON replaces the entries, truncating to capacity
func (l *EventLog) UnmarshalJSON(data []byte) error {
	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if l.capacity <= 0 {
		l.capacity = DefaultLogCapacity
	}
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	l.entries = entries
	return nil
}
