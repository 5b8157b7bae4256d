// Package events feeds the notification ticker. Events come from the
// engine's SSE stream or, when configured, a NATS subject; both end up in a
// small capped Log.
package events

import (
	"context"
	"sync"
	"time"
)

// DefaultLogSize is how many recent events the ticker shows.
const DefaultLogSize = 9

// Event is one notification line. Seq is assigned by Log.Add and increases
// by one per added event.
type Event struct {
	Seq      uint64    `json:"seq"`
	Source   string    `json:"source"`
	Topic    string    `json:"topic,omitempty"`
	ID       string    `json:"id,omitempty"`
	Data     string    `json:"data"`
	Received time.Time `json:"received"`
}

// Source produces events until ctx is cancelled. Run returns nil on
// cancellation and an error only when the source cannot continue.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(Event)) error
}

// Log keeps the most recent events in a fixed-size ring. It is safe for
// concurrent use.
type Log struct {
	mu   sync.RWMutex
	ring []Event
	pos  int // next write position (wraps around)
	len  int // number of valid entries
	seq  uint64
}

// NewLog creates a log holding at most size events.
func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultLogSize
	}
	return &Log{ring: make([]Event, size)}
}

// Add appends e, evicting the oldest entry when full. It returns the
// sequence number given to e.
func (l *Log) Add(e Event) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e.Seq = l.seq
	l.ring[l.pos] = e
	l.pos = (l.pos + 1) % len(l.ring)
	if l.len < len(l.ring) {
		l.len++
	}
	return e.Seq
}

// Entries returns the retained events, oldest first.
func (l *Log) Entries() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, l.len)
	start := (l.pos - l.len + len(l.ring)) % len(l.ring)
	for i := 0; i < l.len; i++ {
		out = append(out, l.ring[(start+i)%len(l.ring)])
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.len
}
