package service

import (
	"fmt"
	"sync"
	"time"
)

// IDGenerator hands out "<prefix>-<unix-ms>" identifiers. Two calls in the same
// millisecond get consecutive values so ids stay unique within the process.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("%s-%d", prefix, ms)
}
