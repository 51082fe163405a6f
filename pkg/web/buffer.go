package web

import "sync"

// DefaultBufferSize is the default number of events kept for late clients.
const DefaultBufferSize = 1000

// Buffer is a thread-safe ring buffer of recent events.
type Buffer struct {
	mu       sync.RWMutex
	events   []Event
	maxSize  int
	writePos int // next position to write, wraps around
	count    int // total events written
}

// NewBuffer makes a buffer holding up to maxSize events, DefaultBufferSize if maxSize <= 0.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &Buffer{events: make([]Event, maxSize), maxSize: maxSize}
}

// Add appends an event, overwriting the oldest one when full.
func (b *Buffer) Add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[b.writePos] = e
	b.writePos = (b.writePos + 1) % b.maxSize
	b.count++
}

// All returns buffered events in chronological order.
func (b *Buffer) All() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return nil
	}

	if b.count <= b.maxSize {
		res := make([]Event, b.count)
		copy(res, b.events[:b.count])
		return res
	}
	// wrapped: oldest event is at writePos
	res := make([]Event, b.maxSize)
	tail := b.maxSize - b.writePos
	copy(res[:tail], b.events[b.writePos:])
	copy(res[tail:], b.events[:b.writePos])
	return res
}

// ByAction returns buffered events of one action in chronological order.
func (b *Buffer) ByAction(action string) []Event {
	var res []Event
	for _, e := range b.All() {
		if e.Action == action {
			res = append(res, e)
		}
	}
	return res
}

// Count returns the number of buffered events.
func (b *Buffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return min(b.count, b.maxSize)
}

// Clear drops all events.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make([]Event, b.maxSize)
	b.writePos, b.count = 0, 0
}
