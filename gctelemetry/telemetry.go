// Package gctelemetry records reclamation-cycle events in a bounded
// ring buffer so an operator (or the stats text dump) can see recent GC
// activity without the core itself taking a dependency on storage.
package gctelemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segflash/fsgc/gc"
)

// Event is one completed RunReclamationLoop call.
type Event struct {
	ID         string
	Timestamp  time.Time
	GCType     gc.GCType
	Status     gc.ReclaimStatus
	Segno      int
	DurationMs int64
}

// Collector buffers Events and answers range queries over them.
type Collector interface {
	Record(e Event)
	Recent(limit int) []Event
	Since(t time.Time) []Event
	Close()
}

type ringCollector struct {
	mu       sync.RWMutex
	events   []Event
	head     int
	count    int
	capacity int
	closed   bool
}

// NewCollector returns a Collector backed by a ring buffer holding up to
// capacity events; capacity <= 0 defaults to 4096.
func NewCollector(capacity int) Collector {
	if capacity <= 0 {
		capacity = 4096
	}
	return &ringCollector{events: make([]Event, capacity), capacity: capacity}
}

func (c *ringCollector) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	c.events[c.head] = e
	c.head = (c.head + 1) % c.capacity
	if c.count < c.capacity {
		c.count++
	}
}

// Recent returns up to limit of the most recently recorded events,
// oldest first. limit <= 0 returns everything buffered.
func (c *ringCollector) Recent(limit int) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > c.count {
		limit = c.count
	}
	out := make([]Event, 0, limit)
	start := c.count - limit
	for i := start; i < c.count; i++ {
		idx := (c.head - c.count + i + c.capacity) % c.capacity
		out = append(out, c.events[idx])
	}
	return out
}

// Since returns all buffered events with Timestamp >= t, oldest first.
func (c *ringCollector) Since(t time.Time) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Event
	for i := 0; i < c.count; i++ {
		idx := (c.head - c.count + i + c.capacity) % c.capacity
		if !c.events[idx].Timestamp.Before(t) {
			out = append(out, c.events[idx])
		}
	}
	return out
}

func (c *ringCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Record is a small helper that times a reclamation-loop call and
// records its outcome; callers wrap RunReclamationLoop/F2fsGC with it
// instead of duplicating the timing boilerplate at each call site.
func Record(c Collector, gcType gc.GCType, segno int, fn func() gc.ReclaimStatus) gc.ReclaimStatus {
	start := time.Now()
	status := fn()
	c.Record(Event{
		GCType:     gcType,
		Status:     status,
		Segno:      segno,
		DurationMs: time.Since(start).Milliseconds(),
	})
	return status
}
