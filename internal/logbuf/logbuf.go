// Package logbuf keeps the most recent log entries in memory so that the
// admin API can serve them without a log shipper.
package logbuf

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a single log entry captured from slog.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries in Query. The zero Filter matches everything.
type Filter struct {
	Since    time.Time
	MinLevel slog.Level
	Limit    int               // keep only the newest Limit matches; <= 0 keeps all
	Contains string            // case-insensitive substring of the message or any attr value
	Attrs    map[string]string // exact attr matches, e.g. {"ticket": "..."}
}

func (f Filter) match(e Entry) bool {
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if ParseLevel(e.Level) < f.MinLevel {
		return false
	}
	for k, want := range f.Attrs {
		v, ok := e.Attrs[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	if f.Contains == "" {
		return true
	}
	needle := strings.ToLower(f.Contains)
	if strings.Contains(strings.ToLower(e.Message), needle) {
		return true
	}
	for _, v := range e.Attrs {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

// Buffer is a thread-safe ring buffer for log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   int
}

// New creates a ring buffer that holds up to size entries.
func New(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Write appends an entry, overwriting the oldest one when full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos = (b.pos + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
	b.mu.Unlock()
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Query returns entries matching f, oldest first.
func (b *Buffer) Query(f Filter) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := 0
	if b.count == len(b.entries) {
		start = b.pos
	}

	var result []Entry
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%len(b.entries)]
		if f.match(e) {
			result = append(result, e)
		}
	}

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[len(result)-f.Limit:]
	}
	return result
}

// ParseLevel converts a level name such as "warn" or "ERROR" to a
// slog.Level. Unknown names map to INFO.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
