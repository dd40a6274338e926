// Package clock provides a replaceable time source so ledgers and reports
// can be tested with fixed timestamps.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by stateful components.
type Clock interface {
	Now() time.Time
}

// RealClock provides the actual system time.
type RealClock struct{}

// Now returns time.Now in UTC.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock is a Clock controlled by tests.
type MockClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewMockClock returns a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{t: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
