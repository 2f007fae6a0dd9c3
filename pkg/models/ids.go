package models

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator issues list element ids from the wall clock in milliseconds.
// Two calls inside the same millisecond would collide, so the generator
// never hands out a value lower than or equal to the previous one.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator reading time from now (time.Now when nil)
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns a new id
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}

// NextUnique returns a new id that is not taken according to exists
func (g *IDGenerator) NextUnique(exists func(string) bool) string {
	for {
		id := g.Next()
		if exists == nil || !exists(id) {
			return id
		}
	}
}
