package testutils

import (
	"fmt"
	"sync"
	"time"
)

// FixedTime is the first instant returned by a Clock.
var FixedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock returns incrementing times one second apart, starting at FixedTime.
type Clock struct {
	mu    sync.Mutex
	ticks int64
}

// Now returns the next deterministic time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := FixedTime.Add(time.Duration(c.ticks) * time.Second)
	c.ticks++
	return t
}

// IDSequence hands out UUID-shaped identifiers 00000001-0000-4000-8000-000000000001,
// 00000002-..., in order.
type IDSequence struct {
	mu   sync.Mutex
	next uint64
}

// NewID returns the next deterministic identifier.
func (s *IDSequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", s.next, s.next)
}
