// Package activity holds the per-session, append-only progress log that clients poll.
package activity

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one progress message. Seq starts at 1 and increases by one per append.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is safe for concurrent use. Entries are never mutated or reordered once appended.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

func New() *Log {
	return &Log{now: time.Now}
}

func (l *Log) Append(message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Seq:       uint64(len(l.entries)) + 1,
		Message:   message,
		CreatedAt: l.now(),
	}
	l.entries = append(l.entries, e)
	return e
}

func (l *Log) Appendf(format string, args ...any) Entry {
	return l.Append(fmt.Sprintf(format, args...))
}

// Read returns a copy of every entry with Seq greater than since, in order.
func (l *Log) Read(since uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if since >= uint64(len(l.entries)) {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries)-int(since))
	copy(out, l.entries[since:])
	return out
}

// Last returns the sequence number of the newest entry, or 0 when empty.
func (l *Log) Last() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries))
}
