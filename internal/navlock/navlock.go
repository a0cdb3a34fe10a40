// Package navlock provides the navigation lock: a single time-bounded
// token that suppresses visibility-driven activation while a programmatic
// navigation (click or history jump) scrolls to its target.
package navlock

import "time"

// Coordinator owns the process-wide navigation lock. It is driven solely
// by the engine event loop and is not safe for concurrent use.
//
// The TTL is a safety net: if the completion signal for a navigation is
// lost, the lock expires on its own instead of wedging activation
// forever. Expiry is lazy; callers observe it through Locked.
type Coordinator struct {
	now func() time.Time

	held      bool
	heldSince time.Time
	ttl       time.Duration
	target    string
}

// New creates a coordinator. A nil clock uses time.Now.
func New(now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{now: now}
}

// Acquire takes the lock for a navigation toward target. If the lock is
// already held the hold is refreshed with the new target and TTL; click
// navigations are never dropped, only visibility proposals are.
func (c *Coordinator) Acquire(target string, ttl time.Duration) {
	c.held = true
	c.heldSince = c.now()
	c.ttl = ttl
	c.target = target
}

// Release clears the lock. Releasing an unheld lock is a no-op; TTL
// expiry followed by a late completion signal lands here.
func (c *Coordinator) Release() {
	c.held = false
	c.target = ""
}

// Locked reports whether the lock is currently in force, expiring it
// first if the TTL has elapsed. Expiry is not an error and is silent.
func (c *Coordinator) Locked() bool {
	if !c.held {
		return false
	}
	if c.now().Sub(c.heldSince) >= c.ttl {
		c.Release()
		return false
	}
	return true
}

// Target returns the region the in-flight navigation is headed to, empty
// when unlocked.
func (c *Coordinator) Target() string {
	if !c.Locked() {
		return ""
	}
	return c.target
}
