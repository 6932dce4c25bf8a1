// Package timeutil provides the time sources used to stamp recorded steps.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the time source for recording sessions.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now returns time.Now.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually controlled clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock set to t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TickClock derives time from a simulation tick counter instead of the wall
// clock: Now is origin + ticks*period. The control loop calls Tick once per
// stepped frame, so recorded timestamps are exact multiples of the period.
type TickClock struct {
	mu     sync.Mutex
	origin time.Time
	period time.Duration
	ticks  int64
}

// NewTickClock creates a TickClock starting at origin that advances by period
// on every Tick.
func NewTickClock(origin time.Time, period time.Duration) *TickClock {
	return &TickClock{origin: origin, period: period}
}

// Now returns origin + ticks*period.
func (c *TickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origin.Add(time.Duration(c.ticks) * c.period)
}

// Tick advances the clock by one period.
func (c *TickClock) Tick() {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
}

// Ticks returns the number of ticks so far.
func (c *TickClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}
