package logging

import (
	"sync"
	"time"
)

// LogEntry is one captured log line, shaped for the status API's log
// endpoint.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer retains the most recent log entries in memory so the status
// API can serve them without consulting journald.
type RingBuffer struct {
	entries []LogEntry
	size    int
	// next is the slot the next entry lands in; once the buffer has
	// wrapped, it is also where the oldest entry lives.
	next  int
	count int
	mu    sync.RWMutex
}

// NewRingBuffer allocates a buffer holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Write stores an entry. A full buffer drops its oldest entry to make room.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next = (rb.next + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	}
}

// ReadAll copies out the retained entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	out := make([]LogEntry, 0, rb.count)
	if rb.count < rb.size {
		out = append(out, rb.entries[:rb.count]...)
	} else {
		out = append(out, rb.entries[rb.next:]...)
		out = append(out, rb.entries[:rb.next]...)
	}
	return out
}

// Count reports how many entries are currently retained.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
